package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"futures-testnet-bot/internal/logger"
	"futures-testnet-bot/internal/model"
)

const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error string          `json:"error"`
	Kind  model.ErrorKind `json:"kind,omitempty"`
}

type validateResponse struct {
	Valid     bool                  `json:"valid"`
	Order     model.NormalizedOrder `json:"order"`
	Rejection *model.Rejection      `json:"rejection,omitempty"`
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOrder(w, r)
	if !ok {
		return
	}

	result := s.bot.Submit(r.Context(), req)
	writeJSON(w, statusForRejection(result.Rejection), result)
}

func (s *Server) handleValidateOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeOrder(w, r)
	if !ok {
		return
	}

	order, rej := s.bot.Validate(r.Context(), req)
	writeJSON(w, statusForRejection(rej), validateResponse{Valid: rej == nil, Order: order, Rejection: rej})
}

func (s *Server) handleRecentOrders(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list orders", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list orders"})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	filter, err := s.bot.Filter(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filter)
}

func (s *Server) handleRefreshFilter(w http.ResponseWriter, r *http.Request) {
	filter, err := s.bot.RefreshFilter(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filter)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := model.NormalizeSymbol(r.PathValue("symbol"))
	price, err := s.bot.Price(r.Context(), symbol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "price": price.String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.bot.CheckHealth(r.Context())

	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.bot.Account()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "account snapshot not available yet"})
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func decodeOrder(w http.ResponseWriter, r *http.Request) (model.OrderRequest, bool) {
	var req model.OrderRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid order request: " + err.Error()})
		return req, false
	}
	return req, true
}

func statusForRejection(rej *model.Rejection) int {
	if rej == nil {
		return http.StatusOK
	}
	return statusForKind(rej.Kind)
}

func statusForKind(kind model.ErrorKind) int {
	switch {
	case model.IsValidationKind(kind):
		return http.StatusUnprocessableEntity
	case kind == model.KindAuth:
		return http.StatusUnauthorized
	case kind == model.KindExchangeRejected:
		return http.StatusBadRequest
	case kind == model.KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	kind := model.KindOf(err)
	code := statusForKind(kind)
	if kind == model.KindSymbolNotFound {
		code = http.StatusNotFound
	}
	writeJSON(w, code, errorResponse{Error: err.Error(), Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}
