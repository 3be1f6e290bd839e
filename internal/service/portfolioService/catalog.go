package portfolioService

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/criptofacil/criptofacil/internal/accounting"
	"github.com/criptofacil/criptofacil/internal/csvport"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/service"
	"github.com/criptofacil/criptofacil/utils"
)

// RefreshPriceCatalog pulls the current market data, refreshes the cache and
// rewrites the snapshot file. Runs on a schedule and at startup.
func (s *PortfolioService) RefreshPriceCatalog(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshPriceCatalog"

	slog.Debug("RefreshPriceCatalog start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshPriceCatalog finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	cryptos, err := s.coingeckoApi.GetMarkets(ctx)
	if err != nil {
		slog.Error("got error from coingeckoApi.GetMarkets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := s.cache.SetCryptos(ctx, cryptos); err != nil {
		slog.Error("got error from cache.SetCryptos", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	snapshot := model.CatalogSnapshot{
		LastUpdated: time.Now(),
		Cryptos:     cryptos,
	}

	if err := s.catalog.Save(snapshot); err != nil {
		slog.Error("got error from catalog.Save", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("price catalog refreshed", slog.String("rqID", rqID), slog.Int("cryptos", len(cryptos)))

	return nil
}

// SearchCatalog matches the query against symbol and name, case-insensitive.
// An empty query returns the catalog head.
func (s *PortfolioService) SearchCatalog(ctx context.Context, query string, limit int) ([]model.CryptoInfo, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SearchCatalog"

	snapshot, err := s.catalog.Load()
	if err != nil {
		slog.Error("got error from catalog.Load", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, service.ErrCatalogUnavailable
	}

	if limit <= 0 {
		limit = 50
	}

	q := strings.ToLower(strings.TrimSpace(query))
	res := make([]model.CryptoInfo, 0, limit)
	for _, crypto := range snapshot.Cryptos {
		if q != "" &&
			!strings.Contains(strings.ToLower(crypto.Symbol), q) &&
			!strings.Contains(strings.ToLower(crypto.Name), q) {
			continue
		}
		res = append(res, crypto)
		if len(res) == limit {
			break
		}
	}

	return res, nil
}

// GenerateWalletReport builds the spreadsheet report for one wallet.
func (s *PortfolioService) GenerateWalletReport(ctx context.Context, walletID, ownerID string) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GenerateWalletReport"

	slog.Debug("GenerateWalletReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("walletID", walletID))
	defer func() {
		slog.Debug("GenerateWalletReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("walletID", walletID))
	}()

	wallet, err := s.GetWallet(ctx, walletID, ownerID)
	if err != nil {
		return nil, "", err
	}

	summary, err := s.GetWalletPortfolio(ctx, walletID, ownerID)
	if err != nil {
		return nil, "", err
	}

	ops, err := s.repo.ListOperations(ctx, walletID, ownerID, model.OperationsFilter{})
	if err != nil {
		slog.Error("got error from repo.ListOperations", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	report := model.WalletReport{
		Wallet:     wallet,
		Summary:    summary,
		Operations: ops,
		Tax:        taxFromOperations(ops),
	}

	fileBytes, ext, err := s.reportGen.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	filename = fmt.Sprintf("relatorio_%s_%s%s", sanitizeFilename(wallet.DisplayName), time.Now().Format("2006-01-02"), ext)

	return fileBytes, filename, nil
}

// ExportBackup zips the full dataset as three CSV files.
func (s *PortfolioService) ExportBackup(ctx context.Context) (zipBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportBackup"

	slog.Debug("ExportBackup start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ExportBackup finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		slog.Error("got error from repo.ListUsers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	wallets, err := s.repo.ListAllWallets(ctx)
	if err != nil {
		slog.Error("got error from repo.ListAllWallets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	ops, err := s.repo.ListAllOperations(ctx)
	if err != nil {
		slog.Error("got error from repo.ListAllOperations", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	usersCSV, err := csvport.MarshalUsers(users)
	if err != nil {
		return nil, "", err
	}
	walletsCSV, err := csvport.MarshalWallets(wallets)
	if err != nil {
		return nil, "", err
	}
	opsCSV, err := csvport.MarshalOperations(ops)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct {
		name string
		data []byte
	}{
		{"usuarios.csv", usersCSV},
		{"carteiras.csv", walletsCSV},
		{"operacoes.csv", opsCSV},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, "", err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}

	filename = fmt.Sprintf("backup_criptofacil_%s.zip", time.Now().Format("2006-01-02_150405"))

	return buf.Bytes(), filename, nil
}

// ImportBackup restores a zip produced by ExportBackup. Rows are inserted as
// they were exported, the frozen derived fields are never recomputed.
func (s *PortfolioService) ImportBackup(ctx context.Context, zipBytes []byte) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ImportBackup"

	slog.Debug("ImportBackup start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ImportBackup finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	zr, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return fmt.Errorf("open backup archive: %w", err)
	}

	contents := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
		contents[f.Name] = data
	}

	users, err := csvport.UnmarshalUsers(contents["usuarios.csv"])
	if err != nil {
		return fmt.Errorf("parse usuarios.csv: %w", err)
	}
	wallets, err := csvport.UnmarshalWallets(contents["carteiras.csv"])
	if err != nil {
		return fmt.Errorf("parse carteiras.csv: %w", err)
	}
	ops, err := csvport.UnmarshalOperations(contents["operacoes.csv"])
	if err != nil {
		return fmt.Errorf("parse operacoes.csv: %w", err)
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, user := range users {
			if err := s.repo.InsertUser(ctx, user); err != nil {
				return err
			}
		}
		for _, wallet := range wallets {
			if err := s.repo.InsertWallet(ctx, wallet); err != nil {
				return err
			}
		}
		for _, operation := range ops {
			if err := s.repo.InsertOperation(ctx, operation); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("got error importing backup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("backup imported", slog.String("rqID", rqID), slog.Int("users", len(users)), slog.Int("wallets", len(wallets)), slog.Int("operations", len(ops)))

	return nil
}

// BackupData uploads a fresh export to cloud storage and prunes stale ones.
// Runs from the scheduler.
func (s *PortfolioService) BackupData(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BackupData"

	slog.Debug("BackupData start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("BackupData finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	zipBytes, filename, err := s.ExportBackup(ctx)
	if err != nil {
		return err
	}

	fileID, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(zipBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("backup uploaded", slog.String("rqID", rqID), slog.String("filename", filename), slog.String("fileID", fileID))

	if err := s.cloudStorage.DeleteOldFiles(ctx); err != nil {
		slog.Error("got error from cloudStorage.DeleteOldFiles", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

// taxFromOperations rolls the history into the tax view of the latest year
// that has sells, for the report's summary sheet.
func taxFromOperations(ops []model.Operation) model.TaxReport {
	years := make(map[int]struct{})
	for _, op := range ops {
		if op.Kind == model.OperationSell {
			years[op.Timestamp.Year()] = struct{}{}
		}
	}
	if len(years) == 0 {
		return model.TaxReport{Year: time.Now().Year()}
	}

	sorted := make([]int, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	return accounting.TaxReport(ops, sorted[0])
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-")
	return replacer.Replace(strings.TrimSpace(name))
}
