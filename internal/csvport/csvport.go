// Package csvport reads and writes the CSV interchange format used for
// backups and data migration. Column order and the timestamp layout are kept
// compatible with the files produced by earlier revisions of the product.
package csvport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/shopspring/decimal"
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	userHeader      = []string{"id", "name", "phone", "email", "password_hash"}
	walletHeader    = []string{"id", "kind", "display_name", "is_foreign", "info1", "info2", "owner_id"}
	operationHeader = []string{
		"id", "wallet_id", "owner_id", "kind", "asset_symbol", "asset_display_name", "asset_icon",
		"quantity", "total_consideration", "timestamp", "avg_cost_at_op", "realized_pl_at_op", "fx_rate",
	}
)

func MarshalUsers(users []model.User) ([]byte, error) {
	return marshal(userHeader, len(users), func(i int) []string {
		u := users[i]
		return []string{u.ID, u.Name, u.Phone, u.Email, u.PasswordHash}
	})
}

func UnmarshalUsers(data []byte) ([]model.User, error) {
	records, err := readRecords(data, userHeader)
	if err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(records))
	for _, rec := range records {
		users = append(users, model.User{
			ID:           rec[0],
			Name:         rec[1],
			Phone:        rec[2],
			Email:        rec[3],
			PasswordHash: rec[4],
		})
	}
	return users, nil
}

func MarshalWallets(wallets []model.Wallet) ([]byte, error) {
	return marshal(walletHeader, len(wallets), func(i int) []string {
		w := wallets[i]
		return []string{w.ID, string(w.Kind), w.DisplayName, strconv.FormatBool(w.IsForeign), w.Info1, w.Info2, w.OwnerID}
	})
}

func UnmarshalWallets(data []byte) ([]model.Wallet, error) {
	records, err := readRecords(data, walletHeader)
	if err != nil {
		return nil, err
	}

	wallets := make([]model.Wallet, 0, len(records))
	for _, rec := range records {
		isForeign, err := strconv.ParseBool(rec[3])
		if err != nil {
			return nil, fmt.Errorf("parse is_foreign %q: %w", rec[3], err)
		}

		kind := model.WalletKind(rec[1])
		if !kind.Valid() {
			return nil, fmt.Errorf("invalid wallet kind %q", rec[1])
		}

		wallets = append(wallets, model.Wallet{
			ID:          rec[0],
			Kind:        kind,
			DisplayName: rec[2],
			IsForeign:   isForeign,
			Info1:       rec[4],
			Info2:       rec[5],
			OwnerID:     rec[6],
		})
	}
	return wallets, nil
}

func MarshalOperations(ops []model.Operation) ([]byte, error) {
	return marshal(operationHeader, len(ops), func(i int) []string {
		op := ops[i]
		return []string{
			op.ID,
			op.WalletID,
			op.OwnerID,
			string(op.Kind),
			op.AssetSymbol,
			op.AssetDisplayName,
			op.AssetIcon,
			op.Quantity.String(),
			op.TotalConsideration.String(),
			op.Timestamp.Format(timestampLayout),
			formatNullDecimal(op.AvgCostAtOp),
			formatNullDecimal(op.RealizedPLAtOp),
			formatNullDecimal(op.FxRate),
		}
	})
}

func UnmarshalOperations(data []byte) ([]model.Operation, error) {
	records, err := readRecords(data, operationHeader)
	if err != nil {
		return nil, err
	}

	ops := make([]model.Operation, 0, len(records))
	for _, rec := range records {
		kind := model.OperationKind(rec[3])
		if !kind.Valid() {
			return nil, fmt.Errorf("invalid operation kind %q", rec[3])
		}

		quantity, err := decimal.NewFromString(rec[7])
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", rec[7], err)
		}

		consideration, err := decimal.NewFromString(rec[8])
		if err != nil {
			return nil, fmt.Errorf("parse total_consideration %q: %w", rec[8], err)
		}

		ts, err := time.Parse(timestampLayout, rec[9])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", rec[9], err)
		}

		avgCost, err := parseNullDecimal(rec[10])
		if err != nil {
			return nil, fmt.Errorf("parse avg_cost_at_op %q: %w", rec[10], err)
		}

		realizedPL, err := parseNullDecimal(rec[11])
		if err != nil {
			return nil, fmt.Errorf("parse realized_pl_at_op %q: %w", rec[11], err)
		}

		fxRate, err := parseNullDecimal(rec[12])
		if err != nil {
			return nil, fmt.Errorf("parse fx_rate %q: %w", rec[12], err)
		}

		ops = append(ops, model.Operation{
			ID:                 rec[0],
			WalletID:           rec[1],
			OwnerID:            rec[2],
			Kind:               kind,
			AssetSymbol:        rec[4],
			AssetDisplayName:   rec[5],
			AssetIcon:          rec[6],
			Quantity:           quantity,
			TotalConsideration: consideration,
			Timestamp:          ts,
			AvgCostAtOp:        avgCost,
			RealizedPLAtOp:     realizedPL,
			FxRate:             fxRate,
		})
	}
	return ops, nil
}

func marshal(header []string, n int, row func(i int) []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readRecords(data []byte, header []string) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	got := records[0]
	if len(got) != len(header) {
		return nil, fmt.Errorf("unexpected header %v", got)
	}
	for i := range header {
		if got[i] != header[i] {
			return nil, fmt.Errorf("unexpected column %q, want %q", got[i], header[i])
		}
	}

	return records[1:], nil
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
