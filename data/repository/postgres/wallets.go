package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/criptofacil/criptofacil/data/repository"
	"github.com/criptofacil/criptofacil/internal/converter/dbConverter"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/model/dbModel"
	"github.com/criptofacil/criptofacil/utils"
)

func (r *Postgres) InsertWallet(ctx context.Context, wallet model.Wallet) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO wallets(wallet_id, owner_id, kind, display_name, is_foreign, info1, info2)
		VALUES($1, $2, $3, $4, $5, $6, $7)
	`

	slog.Debug("InsertWallet start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertWallet failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertWallet completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		wallet.ID,
		wallet.OwnerID,
		string(wallet.Kind),
		wallet.DisplayName,
		wallet.IsForeign,
		wallet.Info1,
		wallet.Info2,
	)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) GetWallet(ctx context.Context, walletID, ownerID string) (wallet model.Wallet, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT wallet_id, owner_id, kind, display_name, is_foreign, info1, info2
		FROM wallets
		WHERE wallet_id = $1
		AND owner_id = $2
	`

	slog.Debug("GetWallet start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetWallet failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetWallet completed", slog.String("rqID", rqID))
		}
	}()

	dbWallet := dbModel.Wallet{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, walletID, ownerID).StructScan(&dbWallet)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Wallet{}, repository.ErrNotFound
		}
		return model.Wallet{}, err
	}

	return dbConverter.ConvertWallet(dbWallet), nil
}

// LockWallet takes a row lock on the wallet for the duration of the current
// transaction. Record(Sell) reads the prior-buy history before writing, so
// writes to one wallet must serialize.
func (r *Postgres) LockWallet(ctx context.Context, walletID, ownerID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT wallet_id FROM wallets WHERE wallet_id = $1 AND owner_id = $2 FOR UPDATE`

	slog.Debug("LockWallet start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("LockWallet failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("LockWallet completed", slog.String("rqID", rqID))
		}
	}()

	var id string
	err = r.txOrDb(ctx).QueryRowContext(ctx, query, walletID, ownerID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	return nil
}

func (r *Postgres) ListWallets(ctx context.Context, ownerID string) (wallets []model.Wallet, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT wallet_id, owner_id, kind, display_name, is_foreign, info1, info2
		FROM wallets
		WHERE owner_id = $1
		ORDER BY display_name, wallet_id
	`

	slog.Debug("ListWallets start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListWallets failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListWallets completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbWallet dbModel.Wallet
		err = rows.StructScan(&dbWallet)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, dbConverter.ConvertWallet(dbWallet))
	}

	return wallets, nil
}

func (r *Postgres) ListAllWallets(ctx context.Context) (wallets []model.Wallet, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT wallet_id, owner_id, kind, display_name, is_foreign, info1, info2
		FROM wallets
		ORDER BY owner_id, wallet_id
	`

	slog.Debug("ListAllWallets start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListAllWallets failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListAllWallets completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbWallet dbModel.Wallet
		err = rows.StructScan(&dbWallet)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, dbConverter.ConvertWallet(dbWallet))
	}

	return wallets, nil
}

func (r *Postgres) DeleteWallet(ctx context.Context, walletID, ownerID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM wallets WHERE wallet_id = $1 AND owner_id = $2`

	slog.Debug("DeleteWallet start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteWallet failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteWallet completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, walletID, ownerID)
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

func (r *Postgres) DeleteWalletsByOwner(ctx context.Context, ownerID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM wallets WHERE owner_id = $1`

	slog.Debug("DeleteWalletsByOwner start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteWalletsByOwner failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteWalletsByOwner completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, ownerID)
	if err != nil {
		return err
	}

	return nil
}
