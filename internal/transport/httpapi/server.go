package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/criptofacil/criptofacil/config"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/service/portfolioService"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// PortfolioService is the surface of the service layer the HTTP API uses.
type PortfolioService interface {
	RegisterUser(ctx context.Context, name, phone, email, password string) (model.User, error)
	Login(ctx context.Context, email, password string) (token string, user model.User, err error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (userID string, err error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	UpdateContact(ctx context.Context, userID, phone, email string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID string) error

	CreateWallet(ctx context.Context, ownerID string, kind model.WalletKind, displayName string, isForeign bool, info1, info2 string) (model.Wallet, error)
	GetWallet(ctx context.Context, walletID, ownerID string) (model.Wallet, error)
	ListWallets(ctx context.Context, ownerID string) ([]model.Wallet, error)
	DeleteWallet(ctx context.Context, walletID, ownerID string) error

	RecordOperation(ctx context.Context, params portfolioService.RecordOperationParams) (op model.Operation, unbacked bool, err error)
	DeleteOperation(ctx context.Context, operationID, ownerID string) error
	ListOperations(ctx context.Context, walletID, ownerID string, filter model.OperationsFilter) ([]model.Operation, error)

	GetWalletPortfolio(ctx context.Context, walletID, ownerID string) (model.PortfolioSummary, error)
	GetConsolidatedPortfolio(ctx context.Context, ownerID string) (model.PortfolioSummary, error)
	GetTaxReport(ctx context.Context, ownerID string, year int) (model.TaxReport, error)

	SearchCatalog(ctx context.Context, query string, limit int) ([]model.CryptoInfo, error)
	GenerateWalletReport(ctx context.Context, walletID, ownerID string) (fileBytes []byte, filename string, err error)
}

type Server struct {
	router     *mux.Router
	httpServer *http.Server
	service    PortfolioService
	cfg        *config.Config
}

func NewServer(cfg *config.Config, svc PortfolioService) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		service: svc,
		cfg:     cfg,
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware)
	s.router.Use(recoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)

	protected.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")

	protected.HandleFunc("/account", s.handleGetAccount).Methods("GET")
	protected.HandleFunc("/account", s.handleUpdateContact).Methods("PUT")
	protected.HandleFunc("/account/password", s.handleChangePassword).Methods("POST")
	protected.HandleFunc("/account", s.handleDeleteAccount).Methods("DELETE")

	protected.HandleFunc("/wallets", s.handleCreateWallet).Methods("POST")
	protected.HandleFunc("/wallets", s.handleListWallets).Methods("GET")
	protected.HandleFunc("/wallets/{id}", s.handleGetWallet).Methods("GET")
	protected.HandleFunc("/wallets/{id}", s.handleDeleteWallet).Methods("DELETE")

	protected.HandleFunc("/wallets/{id}/operations", s.handleRecordOperation).Methods("POST")
	protected.HandleFunc("/wallets/{id}/operations", s.handleListOperations).Methods("GET")
	protected.HandleFunc("/operations/{id}", s.handleDeleteOperation).Methods("DELETE")

	protected.HandleFunc("/wallets/{id}/portfolio", s.handleWalletPortfolio).Methods("GET")
	protected.HandleFunc("/portfolio", s.handleConsolidatedPortfolio).Methods("GET")
	protected.HandleFunc("/taxreport", s.handleTaxReport).Methods("GET")
	protected.HandleFunc("/wallets/{id}/report", s.handleWalletReport).Methods("GET")

	protected.HandleFunc("/catalog", s.handleSearchCatalog).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Start() error {
	slog.Info("starting http server", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// parseDecimal wraps decimal parsing with a uniform error message.
func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// parseTimestamp accepts both RFC3339 and the legacy "2006-01-02 15:04:05"
// layout the CSV interchange files use.
func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02 15:04:05", raw)
}
