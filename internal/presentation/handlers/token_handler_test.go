package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/tokendata/internal/application/services"
	"github.com/bimakw/tokendata/internal/domain/entities"
	"github.com/bimakw/tokendata/internal/orderedmap"
	"github.com/bimakw/tokendata/internal/testutil"
)

func setupTokenHandlerTest() (chi.Router, *testutil.MockTokenRepository) {
	tables := &services.ChainTables{
		Metadata: orderedmap.New[entities.TokenMetadata](),
		Names:    orderedmap.New[string](),
		Tickers:  orderedmap.New[string](),
	}
	tables.Metadata.Set(testutil.USDCAddress, testutil.CreateTestMetadata(
		testutil.MetadataWithDecimals(testutil.PointerTo(6)),
	))
	tables.Metadata.Set(testutil.WETHAddress, testutil.CreateTestMetadata(
		testutil.MetadataWithName(testutil.PointerTo("Wrapped Ether")),
		testutil.MetadataWithTicker(testutil.PointerTo("WETH")),
	))
	tables.Names.Set("USD Coin", testutil.USDCAddress)
	tables.Names.Set("Wrapped Ether", testutil.WETHAddress)
	tables.Tickers.Set("USDC", testutil.USDCAddress)
	tables.Tickers.Set("WETH", testutil.WETHAddress)

	tokenRepo := testutil.NewMockTokenRepository()
	logger := zap.NewNop()

	service := services.NewTokenService(map[int64]*services.ChainTables{1: tables}, tokenRepo, logger)
	handler := NewTokenHandler(service, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	return r, tokenRepo
}

func TestTokenHandler_GetChains(t *testing.T) {
	r, _ := setupTokenHandlerTest()

	req := httptest.NewRequest(http.MethodGet, "/chains", nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.ChainListResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Data) != 1 || response.Data[0].ChainID != 1 || response.Data[0].Tokens != 2 {
		t.Errorf("unexpected chains %+v", response.Data)
	}
}

func TestTokenHandler_Lookups(t *testing.T) {
	r, _ := setupTokenHandlerTest()

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedAddr   string
		expectedError  string
	}{
		{
			name:           "by address",
			path:           "/chains/1/tokens/" + testutil.USDCAddress,
			expectedStatus: http.StatusOK,
			expectedAddr:   testutil.USDCAddress,
		},
		{
			name:           "by uppercase address",
			path:           "/chains/1/tokens/0x" + strings.ToUpper(testutil.WETHAddress[2:]),
			expectedStatus: http.StatusOK,
			expectedAddr:   testutil.WETHAddress,
		},
		{
			name:           "by name",
			path:           "/chains/1/names/" + url.PathEscape("Wrapped Ether"),
			expectedStatus: http.StatusOK,
			expectedAddr:   testutil.WETHAddress,
		},
		{
			name:           "by ticker",
			path:           "/chains/1/tickers/USDC",
			expectedStatus: http.StatusOK,
			expectedAddr:   testutil.USDCAddress,
		},
		{
			name:           "invalid address",
			path:           "/chains/1/tokens/0x1234",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid address format",
		},
		{
			name:           "invalid chain id",
			path:           "/chains/eth/tokens/" + testutil.USDCAddress,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid chain id",
		},
		{
			name:           "unknown chain",
			path:           "/chains/8453/tickers/USDC",
			expectedStatus: http.StatusNotFound,
			expectedError:  "chain not found",
		},
		{
			name:           "unknown token",
			path:           "/chains/1/tokens/" + testutil.DAIAddress,
			expectedStatus: http.StatusNotFound,
			expectedError:  "token not found",
		},
		{
			name:           "unknown ticker",
			path:           "/chains/1/tickers/USDC2",
			expectedStatus: http.StatusNotFound,
			expectedError:  "token not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			r.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			if tt.expectedError != "" {
				var response map[string]string
				if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if response["error"] != tt.expectedError {
					t.Errorf("expected error %q, got %q", tt.expectedError, response["error"])
				}
				return
			}

			var response services.TokenResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Data.Address != tt.expectedAddr || response.Data.ChainID != 1 {
				t.Errorf("unexpected token %+v", response.Data)
			}
		})
	}
}

func TestTokenHandler_GetByAddress_ServiceError(t *testing.T) {
	r, tokenRepo := setupTokenHandlerTest()

	tokenRepo.GetByAddressFunc = func(ctx context.Context, chainID int64, address string) (*entities.Token, error) {
		return nil, errors.New("database error")
	}

	req := httptest.NewRequest(http.MethodGet, "/chains/1/tokens/"+testutil.DAIAddress, nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestTokenHandler_GetByAddress_DatabaseFallback(t *testing.T) {
	r, tokenRepo := setupTokenHandlerTest()

	tokenRepo.AddToken(testutil.CreateTestToken(testutil.TokenWithAddress(testutil.DAIAddress)))

	req := httptest.NewRequest(http.MethodGet, "/chains/1/tokens/"+testutil.DAIAddress, nil)
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.TokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.Name == nil || *response.Data.Name != "Tether USD" {
		t.Errorf("expected database row, got %+v", response.Data)
	}
}
