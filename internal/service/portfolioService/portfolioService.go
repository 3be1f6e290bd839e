package portfolioService

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/criptofacil/criptofacil/data/repository"
	"github.com/criptofacil/criptofacil/internal/accounting"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/service"
	"github.com/criptofacil/criptofacil/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUserContact(ctx context.Context, userID, phone, email string) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	DeleteUser(ctx context.Context, userID string) error

	InsertWallet(ctx context.Context, wallet model.Wallet) error
	GetWallet(ctx context.Context, walletID, ownerID string) (model.Wallet, error)
	LockWallet(ctx context.Context, walletID, ownerID string) error
	ListWallets(ctx context.Context, ownerID string) ([]model.Wallet, error)
	ListAllWallets(ctx context.Context) ([]model.Wallet, error)
	DeleteWallet(ctx context.Context, walletID, ownerID string) error
	DeleteWalletsByOwner(ctx context.Context, ownerID string) error

	InsertOperation(ctx context.Context, op model.Operation) error
	GetOperation(ctx context.Context, operationID, ownerID string) (model.Operation, error)
	GetPriorBuyLots(ctx context.Context, walletID, assetSymbol string, ts time.Time) ([]model.BuyLot, error)
	ListOperations(ctx context.Context, walletID, ownerID string, filter model.OperationsFilter) ([]model.Operation, error)
	ListOperationsByOwner(ctx context.Context, ownerID string) ([]model.Operation, error)
	ListAllOperations(ctx context.Context) ([]model.Operation, error)
	DeleteOperation(ctx context.Context, operationID, ownerID string) error
	DeleteOperationsByWallet(ctx context.Context, walletID, ownerID string) error
	DeleteOperationsByOwner(ctx context.Context, ownerID string) error
}

type Cache interface {
	SetCryptos(ctx context.Context, cryptos []model.CryptoInfo) error
	GetCrypto(ctx context.Context, symbol string) (model.CryptoInfo, error)
	GetCryptos(ctx context.Context, symbols []string) (map[string]model.CryptoInfo, error)
	SetWalletSummary(ctx context.Context, walletID string, summary model.PortfolioSummary) error
	GetWalletSummary(ctx context.Context, walletID string) (model.PortfolioSummary, error)
	SetOwnerSummary(ctx context.Context, ownerID string, summary model.PortfolioSummary) error
	GetOwnerSummary(ctx context.Context, ownerID string) (model.PortfolioSummary, error)
	FlushPortfolioCache(ctx context.Context, walletID, ownerID string) error
}

type SessionStore interface {
	Save(ctx context.Context, token, userID string) error
	Get(ctx context.Context, token string) (userID string, err error)
	Delete(ctx context.Context, token string) error
}

type CoingeckoApi interface {
	GetMarkets(ctx context.Context) ([]model.CryptoInfo, error)
}

type CatalogStore interface {
	Save(snapshot model.CatalogSnapshot) error
	Load() (model.CatalogSnapshot, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.WalletReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (fileID string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	repo         Repository
	cache        Cache
	sessions     SessionStore
	coingeckoApi CoingeckoApi
	catalog      CatalogStore
	reportGen    ReportGenerator
	cloudStorage CloudStorage
	costBasis    accounting.CostBasisStrategy
}

func New(
	repo Repository,
	cache Cache,
	sessions SessionStore,
	coingeckoApi CoingeckoApi,
	catalog CatalogStore,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		repo:         repo,
		cache:        cache,
		sessions:     sessions,
		coingeckoApi: coingeckoApi,
		catalog:      catalog,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
		costBasis:    accounting.WeightedAverage{},
	}
}

// RecordOperationParams carries the caller-supplied fields of a new
// operation. TotalConsideration is in the wallet's local currency, for
// foreign wallets FxRate converts it to BRL before storing.
type RecordOperationParams struct {
	WalletID           string
	OwnerID            string
	Kind               model.OperationKind
	AssetSymbol        string
	Quantity           decimal.Decimal
	TotalConsideration decimal.Decimal
	Timestamp          time.Time
	FxRate             *decimal.Decimal
}

func (s *PortfolioService) CreateWallet(ctx context.Context, ownerID string, kind model.WalletKind, displayName string, isForeign bool, info1, info2 string) (model.Wallet, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateWallet"

	slog.Debug("CreateWallet start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ownerID", ownerID))
	defer func() {
		slog.Debug("CreateWallet finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ownerID", ownerID))
	}()

	if !kind.Valid() {
		return model.Wallet{}, service.ErrInvalidKind
	}

	wallet := model.Wallet{
		ID:          "carteira_" + uuid.NewString(),
		OwnerID:     ownerID,
		Kind:        kind,
		DisplayName: displayName,
		IsForeign:   isForeign,
		Info1:       info1,
		Info2:       info2,
	}

	err := s.repo.InsertWallet(ctx, wallet)
	if err != nil {
		slog.Error("got error from repo.InsertWallet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Wallet{}, err
	}

	return wallet, nil
}

func (s *PortfolioService) GetWallet(ctx context.Context, walletID, ownerID string) (model.Wallet, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetWallet"

	wallet, err := s.repo.GetWallet(ctx, walletID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Wallet{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetWallet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Wallet{}, err
	}

	return wallet, nil
}

func (s *PortfolioService) ListWallets(ctx context.Context, ownerID string) ([]model.Wallet, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListWallets"

	wallets, err := s.repo.ListWallets(ctx, ownerID)
	if err != nil {
		slog.Error("got error from repo.ListWallets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return wallets, nil
}

// DeleteWallet removes the wallet together with its whole operation history.
func (s *PortfolioService) DeleteWallet(ctx context.Context, walletID, ownerID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteWallet"

	slog.Debug("DeleteWallet start", slog.String("rqID", rqID), slog.String("op", op), slog.String("walletID", walletID))
	defer func() {
		slog.Debug("DeleteWallet finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("walletID", walletID))
	}()

	err := s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteOperationsByWallet(ctx, walletID, ownerID); err != nil {
			return err
		}
		return s.repo.DeleteWallet(ctx, walletID, ownerID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error deleting wallet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.cache.FlushPortfolioCache(ctx, walletID, ownerID) // synchronous, a concurrent read must not see the stale snapshot
	if err != nil {
		slog.Error("got error from cache.FlushPortfolioCache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

// RecordOperation validates, derives the frozen cost-basis fields and stores
// the operation. The derived fields are computed once at insert time and
// never recalculated afterwards, they are the audit trail of what the
// position looked like when the operation happened.
//
// A sell with no prior buys of the asset in the wallet is stored anyway with
// empty derived fields, unbacked=true tells the caller to warn the user.
func (s *PortfolioService) RecordOperation(ctx context.Context, params RecordOperationParams) (op model.Operation, unbacked bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	opName := "PortfolioService.RecordOperation"

	slog.Debug("RecordOperation start", slog.String("rqID", rqID), slog.String("op", opName), slog.String("walletID", params.WalletID), slog.String("kind", string(params.Kind)))
	defer func() {
		slog.Debug("RecordOperation finished", slog.String("rqID", rqID), slog.String("op", opName), slog.String("walletID", params.WalletID))
	}()

	if !params.Kind.Valid() {
		return model.Operation{}, false, service.ErrInvalidKind
	}

	if !params.Quantity.IsPositive() {
		return model.Operation{}, false, service.ErrInvalidQuantity
	}

	isTrade := params.Kind == model.OperationBuy || params.Kind == model.OperationSell
	if isTrade && !params.TotalConsideration.IsPositive() {
		return model.Operation{}, false, service.ErrInvalidConsideration
	}
	if !isTrade && params.TotalConsideration.IsNegative() {
		return model.Operation{}, false, service.ErrInvalidConsideration
	}

	wallet, err := s.GetWallet(ctx, params.WalletID, params.OwnerID)
	if err != nil {
		return model.Operation{}, false, err
	}

	consideration := params.TotalConsideration
	var fxRate decimal.NullDecimal
	if wallet.IsForeign && isTrade {
		if params.FxRate == nil || !params.FxRate.IsPositive() {
			return model.Operation{}, false, service.ErrMissingFxRate
		}
		consideration = consideration.Mul(*params.FxRate)
		fxRate = decimal.NullDecimal{Decimal: *params.FxRate, Valid: true}
	}

	symbol := strings.ToUpper(strings.TrimSpace(params.AssetSymbol))
	crypto := s.lookupCrypto(ctx, symbol)

	ts := params.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	op = model.Operation{
		ID:                 "operacao_" + uuid.NewString(),
		WalletID:           params.WalletID,
		OwnerID:            params.OwnerID,
		Kind:               params.Kind,
		AssetSymbol:        symbol,
		AssetDisplayName:   crypto.DisplayName,
		AssetIcon:          crypto.Image,
		Quantity:           params.Quantity,
		TotalConsideration: consideration,
		Timestamp:          ts,
		FxRate:             fxRate,
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		// writes to one wallet serialize: a sell reads the prior buy history before inserting
		if err := s.repo.LockWallet(ctx, params.WalletID, params.OwnerID); err != nil {
			return err
		}

		switch params.Kind {
		case model.OperationBuy:
			op.AvgCostAtOp = accounting.BuyFields(op.Quantity, op.TotalConsideration)
		case model.OperationSell:
			lots, err := s.repo.GetPriorBuyLots(ctx, params.WalletID, symbol, ts)
			if err != nil {
				return err
			}
			var backed bool
			op.AvgCostAtOp, op.RealizedPLAtOp, backed = accounting.SellFields(s.costBasis, lots, op.Quantity, op.TotalConsideration)
			unbacked = !backed
		}

		return s.repo.InsertOperation(ctx, op)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Operation{}, false, service.ErrNotFound
		}
		slog.Error("got error recording operation", slog.String("rqID", rqID), slog.String("op", opName), slog.String("err", err.Error()))
		return model.Operation{}, false, err
	}

	if unbacked {
		slog.Warn("sell without prior buys recorded", slog.String("rqID", rqID), slog.String("op", opName), slog.String("operationID", op.ID), slog.String("symbol", symbol))
	}

	err = s.cache.FlushPortfolioCache(ctx, params.WalletID, params.OwnerID)
	if err != nil {
		slog.Error("got error from cache.FlushPortfolioCache", slog.String("rqID", rqID), slog.String("op", opName), slog.String("err", err.Error()))
	}

	return op, unbacked, nil
}

func (s *PortfolioService) DeleteOperation(ctx context.Context, operationID, ownerID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteOperation"

	slog.Debug("DeleteOperation start", slog.String("rqID", rqID), slog.String("op", op), slog.String("operationID", operationID))
	defer func() {
		slog.Debug("DeleteOperation finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("operationID", operationID))
	}()

	operation, err := s.repo.GetOperation(ctx, operationID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetOperation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.DeleteOperation(ctx, operationID, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeleteOperation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.cache.FlushPortfolioCache(ctx, operation.WalletID, ownerID)
	if err != nil {
		slog.Error("got error from cache.FlushPortfolioCache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

func (s *PortfolioService) ListOperations(ctx context.Context, walletID, ownerID string, filter model.OperationsFilter) ([]model.Operation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListOperations"

	if _, err := s.GetWallet(ctx, walletID, ownerID); err != nil {
		return nil, err
	}

	ops, err := s.repo.ListOperations(ctx, walletID, ownerID, filter)
	if err != nil {
		slog.Error("got error from repo.ListOperations", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return ops, nil
}

func (s *PortfolioService) GetWalletPortfolio(ctx context.Context, walletID, ownerID string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetWalletPortfolio"

	slog.Debug("GetWalletPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("walletID", walletID))
	defer func() {
		slog.Debug("GetWalletPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("walletID", walletID))
	}()

	if _, err := s.GetWallet(ctx, walletID, ownerID); err != nil {
		return model.PortfolioSummary{}, err
	}

	summary, err := s.cache.GetWalletSummary(ctx, walletID)
	if err == nil {
		return summary, nil
	}

	slog.Warn("can't get wallet summary from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	ops, err := s.repo.ListOperations(ctx, walletID, ownerID, model.OperationsFilter{})
	if err != nil {
		slog.Error("got error from repo.ListOperations", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	summary = accounting.Aggregate(ops, s.getPrices(ctx, ops))

	go s.cache.SetWalletSummary(context.WithoutCancel(ctx), walletID, summary)

	return summary, nil
}

// GetConsolidatedPortfolio aggregates over every wallet the user owns.
func (s *PortfolioService) GetConsolidatedPortfolio(ctx context.Context, ownerID string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetConsolidatedPortfolio"

	slog.Debug("GetConsolidatedPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ownerID", ownerID))
	defer func() {
		slog.Debug("GetConsolidatedPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ownerID", ownerID))
	}()

	summary, err := s.cache.GetOwnerSummary(ctx, ownerID)
	if err == nil {
		return summary, nil
	}

	slog.Warn("can't get owner summary from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	ops, err := s.repo.ListOperationsByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("got error from repo.ListOperationsByOwner", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	summary = accounting.Aggregate(ops, s.getPrices(ctx, ops))

	go s.cache.SetOwnerSummary(context.WithoutCancel(ctx), ownerID, summary)

	return summary, nil
}

func (s *PortfolioService) GetTaxReport(ctx context.Context, ownerID string, year int) (model.TaxReport, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetTaxReport"

	slog.Debug("GetTaxReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("year", year))
	defer func() {
		slog.Debug("GetTaxReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("year", year))
	}()

	ops, err := s.repo.ListOperationsByOwner(ctx, ownerID)
	if err != nil {
		slog.Error("got error from repo.ListOperationsByOwner", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TaxReport{}, err
	}

	return accounting.TaxReport(ops, year), nil
}

// getPrices resolves current prices for every asset present in the
// operations, first from cache and then from the last catalog snapshot on
// disk. Assets absent from both are priced as zero by the aggregation.
func (s *PortfolioService) getPrices(ctx context.Context, ops []model.Operation) accounting.PriceMap {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.getPrices"

	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for _, operation := range ops {
		if _, ok := seen[operation.AssetSymbol]; ok {
			continue
		}
		seen[operation.AssetSymbol] = struct{}{}
		symbols = append(symbols, operation.AssetSymbol)
	}

	prices := make(accounting.PriceMap, len(symbols))

	cached, err := s.cache.GetCryptos(ctx, symbols)
	if err != nil {
		slog.Warn("can't get cryptos from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		cached = map[string]model.CryptoInfo{}
	}

	for symbol, crypto := range cached {
		prices[symbol] = crypto.CurrentPriceBRL
	}

	if len(prices) < len(symbols) {
		snapshot, err := s.catalog.Load()
		if err != nil {
			slog.Warn("can't load catalog snapshot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return prices
		}
		for _, crypto := range snapshot.Cryptos {
			if _, ok := seen[crypto.Symbol]; !ok {
				continue
			}
			if _, ok := prices[crypto.Symbol]; ok {
				continue
			}
			prices[crypto.Symbol] = crypto.CurrentPriceBRL
		}
	}

	return prices
}

// lookupCrypto enriches an operation with catalog labels. A miss is not an
// error, unknown assets keep the bare symbol as display name.
func (s *PortfolioService) lookupCrypto(ctx context.Context, symbol string) model.CryptoInfo {
	crypto, err := s.cache.GetCrypto(ctx, symbol)
	if err == nil {
		return crypto
	}

	snapshot, err := s.catalog.Load()
	if err == nil {
		for _, c := range snapshot.Cryptos {
			if c.Symbol == symbol {
				return c
			}
		}
	}

	return model.CryptoInfo{Symbol: symbol, DisplayName: symbol}
}
