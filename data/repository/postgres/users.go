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
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

func (r *Postgres) InsertUser(ctx context.Context, user model.User) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO users(user_id, name, phone, email, password_hash) VALUES($1, $2, $3, $4, $5)`

	slog.Debug("InsertUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUser completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, user.ID, user.Name, user.Phone, user.Email, user.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

func (r *Postgres) GetUserByEmail(ctx context.Context, email string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT user_id, name, phone, email, password_hash FROM users WHERE email = $1`

	slog.Debug("GetUserByEmail start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserByEmail failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByEmail completed", slog.String("rqID", rqID))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, email).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) GetUser(ctx context.Context, userID string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT user_id, name, phone, email, password_hash FROM users WHERE user_id = $1`

	slog.Debug("GetUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUser completed", slog.String("rqID", rqID))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) ListUsers(ctx context.Context) (users []model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT user_id, name, phone, email, password_hash FROM users ORDER BY user_id`

	slog.Debug("ListUsers start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListUsers failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListUsers completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbUser dbModel.User
		err = rows.StructScan(&dbUser)
		if err != nil {
			return nil, err
		}
		users = append(users, dbConverter.ConvertUser(dbUser))
	}

	return users, nil
}

func (r *Postgres) UpdateUserContact(ctx context.Context, userID, phone, email string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE users SET phone = $1, email = $2 WHERE user_id = $3`

	slog.Debug("UpdateUserContact start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateUserContact failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateUserContact completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, phone, email, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
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

func (r *Postgres) UpdateUserPassword(ctx context.Context, userID, passwordHash string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `UPDATE users SET password_hash = $1 WHERE user_id = $2`

	slog.Debug("UpdateUserPassword start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateUserPassword failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateUserPassword completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, passwordHash, userID)
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

func (r *Postgres) DeleteUser(ctx context.Context, userID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM users WHERE user_id = $1`

	slog.Debug("DeleteUser start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteUser completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, userID)
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
