package portfolioService

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"github.com/criptofacil/criptofacil/data/repository"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/service"
	"github.com/criptofacil/criptofacil/utils"
	"github.com/google/uuid"
)

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (s *PortfolioService) RegisterUser(ctx context.Context, name, phone, email, password string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RegisterUser"

	slog.Debug("RegisterUser start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RegisterUser finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	user := model.User{
		ID:           "usuario_" + uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hashPassword(password),
	}

	err := s.repo.InsertUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.User{}, service.ErrAlreadyExists
		}
		slog.Error("got error from repo.InsertUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	return user, nil
}

func (s *PortfolioService) Login(ctx context.Context, email, password string) (token string, user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Login"

	slog.Debug("Login start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Login finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	user, err = s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", model.User{}, service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.GetUserByEmail", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", model.User{}, err
	}

	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(hashPassword(password))) != 1 {
		return "", model.User{}, service.ErrInvalidCredentials
	}

	token = uuid.NewString()
	err = s.sessions.Save(ctx, token, user.ID)
	if err != nil {
		slog.Error("got error from sessions.Save", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", model.User{}, err
	}

	return token, user, nil
}

func (s *PortfolioService) Logout(ctx context.Context, token string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Logout"

	err := s.sessions.Delete(ctx, token)
	if err != nil {
		slog.Error("got error from sessions.Delete", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// Authenticate resolves a bearer token to the user it belongs to.
func (s *PortfolioService) Authenticate(ctx context.Context, token string) (userID string, err error) {
	userID, err = s.sessions.Get(ctx, token)
	if err != nil {
		return "", service.ErrInvalidCredentials
	}
	return userID, nil
}

func (s *PortfolioService) GetUser(ctx context.Context, userID string) (model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetUser"

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.User{}, err
	}

	return user, nil
}

func (s *PortfolioService) UpdateContact(ctx context.Context, userID, phone, email string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateContact"

	slog.Debug("UpdateContact start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("UpdateContact finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	err := s.repo.UpdateUserContact(ctx, userID, strings.TrimSpace(phone), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		if errors.Is(err, repository.ErrAlreadyExists) {
			return service.ErrAlreadyExists
		}
		slog.Error("got error from repo.UpdateUserContact", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ChangePassword"

	slog.Debug("ChangePassword start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("ChangePassword finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(user.PasswordHash), []byte(hashPassword(oldPassword))) != 1 {
		return service.ErrInvalidCredentials
	}

	err = s.repo.UpdateUserPassword(ctx, userID, hashPassword(newPassword))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.UpdateUserPassword", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// DeleteAccount removes the user with all their wallets and operations.
func (s *PortfolioService) DeleteAccount(ctx context.Context, userID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteAccount"

	slog.Debug("DeleteAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("DeleteAccount finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	wallets, err := s.repo.ListWallets(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.ListWallets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteOperationsByOwner(ctx, userID); err != nil {
			return err
		}
		if err := s.repo.DeleteWalletsByOwner(ctx, userID); err != nil {
			return err
		}
		return s.repo.DeleteUser(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error deleting account", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	for _, wallet := range wallets {
		if err := s.cache.FlushPortfolioCache(ctx, wallet.ID, userID); err != nil {
			slog.Error("got error from cache.FlushPortfolioCache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}

	return nil
}
