package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/gorilla/mux"
)

func (s *Server) handleWalletPortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.GetWalletPortfolio(r.Context(), mux.Vars(r)["id"], userIDFromCtx(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleConsolidatedPortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.GetConsolidatedPortfolio(r.Context(), userIDFromCtx(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTaxReport(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid year")
			return
		}
		year = parsed
	}

	report, err := s.service.GetTaxReport(r.Context(), userIDFromCtx(r.Context()), year)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleWalletReport(w http.ResponseWriter, r *http.Request) {
	fileBytes, filename, err := s.service.GenerateWalletReport(r.Context(), mux.Vars(r)["id"], userIDFromCtx(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(fileBytes)
}

func (s *Server) handleSearchCatalog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid limit")
			return
		}
		limit = parsed
	}

	cryptos, err := s.service.SearchCatalog(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if cryptos == nil {
		cryptos = []model.CryptoInfo{}
	}
	respondJSON(w, http.StatusOK, cryptos)
}
