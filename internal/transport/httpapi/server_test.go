package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/criptofacil/criptofacil/config"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/service"
	"github.com/criptofacil/criptofacil/internal/service/portfolioService"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService answers with the configured function fields; everything not
// set returns the zero value.
type stubService struct {
	registerUser   func(name, phone, email, password string) (model.User, error)
	login          func(email, password string) (string, model.User, error)
	authenticate   func(token string) (string, error)
	createWallet   func(ownerID string, kind model.WalletKind, displayName string, isForeign bool) (model.Wallet, error)
	getWallet      func(walletID, ownerID string) (model.Wallet, error)
	recordOp       func(params portfolioService.RecordOperationParams) (model.Operation, bool, error)
	listOps        func(walletID, ownerID string, filter model.OperationsFilter) ([]model.Operation, error)
	walletSummary  func(walletID, ownerID string) (model.PortfolioSummary, error)
	searchCatalog  func(query string, limit int) ([]model.CryptoInfo, error)
	generateReport func(walletID, ownerID string) ([]byte, string, error)
}

func (s *stubService) RegisterUser(_ context.Context, name, phone, email, password string) (model.User, error) {
	if s.registerUser != nil {
		return s.registerUser(name, phone, email, password)
	}
	return model.User{}, nil
}

func (s *stubService) Login(_ context.Context, email, password string) (string, model.User, error) {
	if s.login != nil {
		return s.login(email, password)
	}
	return "", model.User{}, service.ErrInvalidCredentials
}

func (s *stubService) Logout(context.Context, string) error { return nil }

func (s *stubService) Authenticate(_ context.Context, token string) (string, error) {
	if s.authenticate != nil {
		return s.authenticate(token)
	}
	return "", service.ErrInvalidCredentials
}

func (s *stubService) GetUser(context.Context, string) (model.User, error) {
	return model.User{}, nil
}

func (s *stubService) UpdateContact(context.Context, string, string, string) error { return nil }

func (s *stubService) ChangePassword(context.Context, string, string, string) error { return nil }

func (s *stubService) DeleteAccount(context.Context, string) error { return nil }

func (s *stubService) CreateWallet(_ context.Context, ownerID string, kind model.WalletKind, displayName string, isForeign bool, _, _ string) (model.Wallet, error) {
	if s.createWallet != nil {
		return s.createWallet(ownerID, kind, displayName, isForeign)
	}
	return model.Wallet{}, nil
}

func (s *stubService) GetWallet(_ context.Context, walletID, ownerID string) (model.Wallet, error) {
	if s.getWallet != nil {
		return s.getWallet(walletID, ownerID)
	}
	return model.Wallet{}, service.ErrNotFound
}

func (s *stubService) ListWallets(context.Context, string) ([]model.Wallet, error) {
	return nil, nil
}

func (s *stubService) DeleteWallet(context.Context, string, string) error { return nil }

func (s *stubService) RecordOperation(_ context.Context, params portfolioService.RecordOperationParams) (model.Operation, bool, error) {
	if s.recordOp != nil {
		return s.recordOp(params)
	}
	return model.Operation{}, false, nil
}

func (s *stubService) DeleteOperation(context.Context, string, string) error { return nil }

func (s *stubService) ListOperations(_ context.Context, walletID, ownerID string, filter model.OperationsFilter) ([]model.Operation, error) {
	if s.listOps != nil {
		return s.listOps(walletID, ownerID, filter)
	}
	return nil, nil
}

func (s *stubService) GetWalletPortfolio(_ context.Context, walletID, ownerID string) (model.PortfolioSummary, error) {
	if s.walletSummary != nil {
		return s.walletSummary(walletID, ownerID)
	}
	return model.PortfolioSummary{}, nil
}

func (s *stubService) GetConsolidatedPortfolio(context.Context, string) (model.PortfolioSummary, error) {
	return model.PortfolioSummary{}, nil
}

func (s *stubService) GetTaxReport(_ context.Context, _ string, year int) (model.TaxReport, error) {
	return model.TaxReport{Year: year}, nil
}

func (s *stubService) SearchCatalog(_ context.Context, query string, limit int) ([]model.CryptoInfo, error) {
	if s.searchCatalog != nil {
		return s.searchCatalog(query, limit)
	}
	return nil, nil
}

func (s *stubService) GenerateWalletReport(_ context.Context, walletID, ownerID string) ([]byte, string, error) {
	if s.generateReport != nil {
		return s.generateReport(walletID, ownerID)
	}
	return nil, "", service.ErrNotFound
}

func newTestServer(t *testing.T, svc PortfolioService) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 0
	cfg.HTTP.ReadTimeout = time.Second
	cfg.HTTP.WriteTimeout = time.Second
	return NewServer(cfg, svc)
}

func doRequest(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func authedStub() *stubService {
	return &stubService{
		authenticate: func(token string) (string, error) {
			if token == "valid-token" {
				return "usuario_1", nil
			}
			return "", service.ErrInvalidCredentials
		},
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	rec := doRequest(t, srv, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegister(t *testing.T) {
	stub := &stubService{
		registerUser: func(name, phone, email, password string) (model.User, error) {
			assert.Equal(t, "Ana", name)
			assert.Equal(t, "ana@example.com", email)
			return model.User{ID: "usuario_1", Name: name, Email: email}, nil
		},
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "s3cret",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "usuario_1", user.ID)
}

func TestRegisterMissingFields(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestRegisterConflict(t *testing.T) {
	stub := &stubService{
		registerUser: func(string, string, string, string) (model.User, error) {
			return model.User{}, service.ErrAlreadyExists
		},
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "s3cret",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFLICT")
}

func TestLoginBadCredentials(t *testing.T) {
	srv := newTestServer(t, &stubService{})

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	srv := newTestServer(t, authedStub())

	rec := doRequest(t, srv, http.MethodGet, "/api/wallets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/wallets", "bad-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/wallets", "valid-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateWallet(t *testing.T) {
	stub := authedStub()
	stub.createWallet = func(ownerID string, kind model.WalletKind, displayName string, isForeign bool) (model.Wallet, error) {
		assert.Equal(t, "usuario_1", ownerID)
		assert.Equal(t, model.WalletExchange, kind)
		assert.True(t, isForeign)
		return model.Wallet{ID: "carteira_1", OwnerID: ownerID, Kind: kind, DisplayName: displayName, IsForeign: isForeign}, nil
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodPost, "/api/wallets", "valid-token", map[string]any{
		"kind": "exchange", "display_name": "Coinbase", "is_foreign": true,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var wallet model.Wallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
	assert.Equal(t, "carteira_1", wallet.ID)
}

func TestRecordOperation(t *testing.T) {
	stub := authedStub()
	stub.recordOp = func(params portfolioService.RecordOperationParams) (model.Operation, bool, error) {
		assert.Equal(t, "carteira_1", params.WalletID)
		assert.Equal(t, "usuario_1", params.OwnerID)
		assert.Equal(t, model.OperationSell, params.Kind)
		assert.True(t, params.Quantity.Equal(decimal.RequireFromString("0.5")))
		assert.True(t, params.TotalConsideration.Equal(decimal.RequireFromString("126000")))
		return model.Operation{ID: "operacao_1", Kind: params.Kind}, true, nil
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodPost, "/api/wallets/carteira_1/operations", "valid-token", map[string]any{
		"kind":                "sell",
		"asset_symbol":        "BTC",
		"quantity":            "0.5",
		"total_consideration": "126000",
		"timestamp":           "2025-03-03T10:00:00Z",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Operation model.Operation `json:"operation"`
		Unbacked  bool            `json:"unbacked_sell"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "operacao_1", resp.Operation.ID)
	assert.True(t, resp.Unbacked)
}

func TestRecordOperationBadDecimal(t *testing.T) {
	srv := newTestServer(t, authedStub())

	rec := doRequest(t, srv, http.MethodPost, "/api/wallets/carteira_1/operations", "valid-token", map[string]any{
		"kind": "buy", "asset_symbol": "BTC", "quantity": "abc", "total_consideration": "10",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestRecordOperationUnknownField(t *testing.T) {
	srv := newTestServer(t, authedStub())

	rec := doRequest(t, srv, http.MethodPost, "/api/wallets/carteira_1/operations", "valid-token", map[string]any{
		"kind": "buy", "asset_symbol": "BTC", "quantity": "1", "total_consideration": "10",
		"surprise": true,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOperationsFilter(t *testing.T) {
	stub := authedStub()
	stub.listOps = func(walletID, ownerID string, filter model.OperationsFilter) ([]model.Operation, error) {
		assert.Equal(t, "BTC", filter.AssetSymbol)
		assert.Equal(t, []model.OperationKind{model.OperationBuy, model.OperationSell}, filter.Kinds)
		return []model.Operation{{ID: "operacao_1"}}, nil
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodGet, "/api/wallets/carteira_1/operations?asset=btc&kinds=buy,sell", "valid-token", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var ops []model.Operation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ops))
	require.Len(t, ops, 1)
}

func TestWalletPortfolioNotFound(t *testing.T) {
	stub := authedStub()
	stub.walletSummary = func(string, string) (model.PortfolioSummary, error) {
		return model.PortfolioSummary{}, service.ErrNotFound
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodGet, "/api/wallets/carteira_x/portfolio", "valid-token", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestWalletReportDownload(t *testing.T) {
	stub := authedStub()
	stub.generateReport = func(walletID, ownerID string) ([]byte, string, error) {
		return []byte("xlsx-bytes"), "relatorio_Coinbase_2025-03-03.xlsx", nil
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodGet, "/api/wallets/carteira_1/report", "valid-token", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "relatorio_Coinbase_2025-03-03.xlsx")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}

func TestSearchCatalog(t *testing.T) {
	stub := authedStub()
	stub.searchCatalog = func(query string, limit int) ([]model.CryptoInfo, error) {
		assert.Equal(t, "btc", query)
		assert.Equal(t, 5, limit)
		return []model.CryptoInfo{{Symbol: "BTC", Name: "Bitcoin"}}, nil
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodGet, "/api/catalog?q=btc&limit=5", "valid-token", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bitcoin")
}

func TestCatalogUnavailable(t *testing.T) {
	stub := authedStub()
	stub.searchCatalog = func(string, int) ([]model.CryptoInfo, error) {
		return nil, service.ErrCatalogUnavailable
	}
	srv := newTestServer(t, stub)

	rec := doRequest(t, srv, http.MethodGet, "/api/catalog?q=btc", "valid-token", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SERVICE_UNAVAILABLE")
}
