package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/application/services"
)

// TokenHandler handles HTTP requests for token lookups
type TokenHandler struct {
	service *services.TokenService
	logger  *zap.Logger
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(service *services.TokenService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the token routes
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chains", h.GetChains)
	r.Route("/chains/{chainID}", func(r chi.Router) {
		r.Get("/tokens/{address}", h.GetByAddress)
		r.Get("/names/{name}", h.GetByName)
		r.Get("/tickers/{ticker}", h.GetByTicker)
	})
}

// GetChains handles GET /api/v1/chains
func (h *TokenHandler) GetChains(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Chains())
}

// GetByAddress handles GET /api/v1/chains/{chainID}/tokens/{address}
func (h *TokenHandler) GetByAddress(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, "address", h.service.GetByAddress)
}

// GetByName handles GET /api/v1/chains/{chainID}/names/{name}
func (h *TokenHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, "name", h.service.GetByName)
}

// GetByTicker handles GET /api/v1/chains/{chainID}/tickers/{ticker}
func (h *TokenHandler) GetByTicker(w http.ResponseWriter, r *http.Request) {
	h.lookup(w, r, "ticker", h.service.GetByTicker)
}

type lookupFunc func(ctx context.Context, chainID int64, key string) (*services.TokenResponse, error)

func (h *TokenHandler) lookup(w http.ResponseWriter, r *http.Request, param string, fn lookupFunc) {
	chainID, err := strconv.ParseInt(chi.URLParam(r, "chainID"), 10, 64)
	if err != nil || chainID <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid chain id")
		return
	}

	key := chi.URLParam(r, param)

	response, err := fn(r.Context(), chainID, key)
	switch {
	case err == nil:
		h.respondJSON(w, http.StatusOK, response)
	case errors.Is(err, services.ErrInvalidAddress):
		h.respondError(w, http.StatusBadRequest, "Invalid address format")
	case errors.Is(err, services.ErrChainNotFound):
		h.respondError(w, http.StatusNotFound, "chain not found")
	case errors.Is(err, services.ErrTokenNotFound):
		h.respondError(w, http.StatusNotFound, "token not found")
	default:
		h.logger.Error("Failed to get token",
			zap.Error(err),
			zap.Int64("chain_id", chainID),
			zap.String(param, key),
		)
		h.respondError(w, http.StatusInternalServerError, "Failed to get token")
	}
}

func (h *TokenHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *TokenHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
