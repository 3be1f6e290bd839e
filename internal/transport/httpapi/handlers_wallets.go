package httpapi

import (
	"net/http"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/gorilla/mux"
)

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind        string `json:"kind"`
		DisplayName string `json:"display_name"`
		IsForeign   bool   `json:"is_foreign"`
		Info1       string `json:"info1"`
		Info2       string `json:"info2"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	if req.DisplayName == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "display_name is required")
		return
	}

	wallet, err := s.service.CreateWallet(
		r.Context(),
		userIDFromCtx(r.Context()),
		model.WalletKind(req.Kind),
		req.DisplayName,
		req.IsForeign,
		req.Info1,
		req.Info2,
	)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, wallet)
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.service.ListWallets(r.Context(), userIDFromCtx(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if wallets == nil {
		wallets = []model.Wallet{}
	}
	respondJSON(w, http.StatusOK, wallets)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.service.GetWallet(r.Context(), mux.Vars(r)["id"], userIDFromCtx(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteWallet(r.Context(), mux.Vars(r)["id"], userIDFromCtx(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
