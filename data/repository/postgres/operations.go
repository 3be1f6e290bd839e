package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/criptofacil/criptofacil/data/repository"
	"github.com/criptofacil/criptofacil/internal/converter/dbConverter"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/model/dbModel"
	"github.com/criptofacil/criptofacil/utils"
)

const operationColumns = `
	operation_id, wallet_id, owner_id, kind, asset_symbol, asset_display_name, asset_icon,
	quantity, total_consideration, operated_at, avg_cost_at_op, realized_pl_at_op, fx_rate
`

func (r *Postgres) InsertOperation(ctx context.Context, op model.Operation) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO operations(
			operation_id, wallet_id, owner_id, kind, asset_symbol, asset_display_name, asset_icon,
			quantity, total_consideration, operated_at, avg_cost_at_op, realized_pl_at_op, fx_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	slog.Debug(
		"InsertOperation start",
		slog.String("rqID", rqID),
		slog.String("walletID", op.WalletID),
		slog.String("asset", op.AssetSymbol),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("InsertOperation failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertOperation completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		op.ID,
		op.WalletID,
		op.OwnerID,
		string(op.Kind),
		op.AssetSymbol,
		op.AssetDisplayName,
		op.AssetIcon,
		op.Quantity,
		op.TotalConsideration,
		op.Timestamp,
		op.AvgCostAtOp,
		op.RealizedPLAtOp,
		op.FxRate,
	)
	if err != nil {
		return err
	}

	return nil
}

// GetPriorBuyLots returns the quantity/consideration pairs of every buy for
// the same wallet and asset dated at or before ts. The cost-basis strategy
// decides how to reduce them.
func (r *Postgres) GetPriorBuyLots(ctx context.Context, walletID, assetSymbol string, ts time.Time) (lots []model.BuyLot, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT quantity, total_consideration
		FROM operations
		WHERE wallet_id = $1
		AND asset_symbol = $2
		AND kind = 'buy'
		AND operated_at <= $3
	`

	slog.Debug("GetPriorBuyLots start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPriorBuyLots failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPriorBuyLots completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, walletID, assetSymbol, ts)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbLot dbModel.BuyLot
		err = rows.StructScan(&dbLot)
		if err != nil {
			return nil, err
		}
		lots = append(lots, dbConverter.ConvertBuyLot(dbLot))
	}

	return lots, nil
}

func (r *Postgres) GetOperation(ctx context.Context, operationID, ownerID string) (op model.Operation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ` + operationColumns + ` FROM operations WHERE operation_id = $1 AND owner_id = $2`

	slog.Debug("GetOperation start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetOperation failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetOperation completed", slog.String("rqID", rqID))
		}
	}()

	dbOp := dbModel.Operation{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, operationID, ownerID).StructScan(&dbOp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Operation{}, repository.ErrNotFound
		}
		return model.Operation{}, err
	}

	return dbConverter.ConvertOperation(dbOp), nil
}

func (r *Postgres) getOperations(ctx context.Context, query string, args []any) (ops []model.Operation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("getOperations start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getOperations failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getOperations completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbOp dbModel.Operation
		err = rows.StructScan(&dbOp)
		if err != nil {
			return nil, err
		}
		ops = append(ops, dbConverter.ConvertOperation(dbOp))
	}

	return ops, nil
}

func (r *Postgres) ListOperations(ctx context.Context, walletID, ownerID string, filter model.OperationsFilter) ([]model.Operation, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + operationColumns + ` FROM operations WHERE wallet_id = $1 AND owner_id = $2`)

	args := []any{walletID, ownerID}

	if len(filter.Kinds) > 0 {
		placeholders := make([]string, 0, len(filter.Kinds))
		for _, kind := range filter.Kinds {
			args = append(args, string(kind))
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		sb.WriteString(" AND kind IN (" + strings.Join(placeholders, ", ") + ")")
	}

	if filter.AssetSymbol != "" {
		args = append(args, filter.AssetSymbol)
		sb.WriteString(fmt.Sprintf(" AND asset_symbol = $%d", len(args)))
	}

	if filter.From != nil {
		args = append(args, *filter.From)
		sb.WriteString(fmt.Sprintf(" AND operated_at >= $%d", len(args)))
	}

	if filter.To != nil {
		args = append(args, *filter.To)
		sb.WriteString(fmt.Sprintf(" AND operated_at <= $%d", len(args)))
	}

	sb.WriteString(" ORDER BY operated_at DESC, operation_id")

	return r.getOperations(ctx, sb.String(), args)
}

func (r *Postgres) ListOperationsByOwner(ctx context.Context, ownerID string) ([]model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE owner_id = $1 ORDER BY operated_at DESC, operation_id`
	return r.getOperations(ctx, query, []any{ownerID})
}

func (r *Postgres) ListAllOperations(ctx context.Context) ([]model.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations ORDER BY operated_at, operation_id`
	return r.getOperations(ctx, query, nil)
}

func (r *Postgres) DeleteOperation(ctx context.Context, operationID, ownerID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM operations WHERE operation_id = $1 AND owner_id = $2`

	slog.Debug("DeleteOperation start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteOperation failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteOperation completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, operationID, ownerID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) DeleteOperationsByWallet(ctx context.Context, walletID, ownerID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM operations WHERE wallet_id = $1 AND owner_id = $2`

	slog.Debug("DeleteOperationsByWallet start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteOperationsByWallet failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteOperationsByWallet completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, walletID, ownerID)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) DeleteOperationsByOwner(ctx context.Context, ownerID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM operations WHERE owner_id = $1`

	slog.Debug("DeleteOperationsByOwner start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteOperationsByOwner failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteOperationsByOwner completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, ownerID)
	if err != nil {
		return err
	}

	return nil
}
