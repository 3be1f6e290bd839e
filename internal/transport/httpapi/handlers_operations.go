package httpapi

import (
	"net/http"
	"strings"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/service/portfolioService"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type operationResponse struct {
	Operation model.Operation `json:"operation"`
	Unbacked  bool            `json:"unbacked_sell"`
}

func (s *Server) handleRecordOperation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind               string `json:"kind"`
		AssetSymbol        string `json:"asset_symbol"`
		Quantity           string `json:"quantity"`
		TotalConsideration string `json:"total_consideration"`
		Timestamp          string `json:"timestamp"`
		FxRate             string `json:"fx_rate"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid request body")
		return
	}

	if req.AssetSymbol == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "asset_symbol is required")
		return
	}

	quantity, err := parseDecimal(req.Quantity)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid quantity")
		return
	}

	consideration, err := parseDecimal(req.TotalConsideration)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid total_consideration")
		return
	}

	ts, err := parseTimestamp(req.Timestamp)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid timestamp")
		return
	}

	var fxRate *decimal.Decimal
	if req.FxRate != "" {
		fx, err := decimal.NewFromString(req.FxRate)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid fx_rate")
			return
		}
		fxRate = &fx
	}

	op, unbacked, err := s.service.RecordOperation(r.Context(), portfolioService.RecordOperationParams{
		WalletID:           mux.Vars(r)["id"],
		OwnerID:            userIDFromCtx(r.Context()),
		Kind:               model.OperationKind(req.Kind),
		AssetSymbol:        req.AssetSymbol,
		Quantity:           quantity,
		TotalConsideration: consideration,
		Timestamp:          ts,
		FxRate:             fxRate,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, operationResponse{Operation: op, Unbacked: unbacked})
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	filter := model.OperationsFilter{
		AssetSymbol: strings.ToUpper(r.URL.Query().Get("asset")),
	}

	if kinds := r.URL.Query().Get("kinds"); kinds != "" {
		for _, raw := range strings.Split(kinds, ",") {
			kind := model.OperationKind(strings.TrimSpace(raw))
			if !kind.Valid() {
				respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid kind filter")
				return
			}
			filter.Kinds = append(filter.Kinds, kind)
		}
	}

	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := parseTimestamp(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid from timestamp")
			return
		}
		filter.From = &from
	}

	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := parseTimestamp(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "invalid to timestamp")
			return
		}
		filter.To = &to
	}

	ops, err := s.service.ListOperations(r.Context(), mux.Vars(r)["id"], userIDFromCtx(r.Context()), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if ops == nil {
		ops = []model.Operation{}
	}
	respondJSON(w, http.StatusOK, ops)
}

func (s *Server) handleDeleteOperation(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteOperation(r.Context(), mux.Vars(r)["id"], userIDFromCtx(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
