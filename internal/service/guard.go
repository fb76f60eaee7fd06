package service

import (
	"context"
	"errors"

	"carparts-storefront/internal/model"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/session"

	"gorm.io/gorm"
)

// AuthGuard resolves a session token to its user. It only reads.
type AuthGuard interface {
	RequireLogin(ctx context.Context, token string) (*model.User, error)
	RequireAdmin(ctx context.Context, token string) (*model.User, error)
}

type authGuardImpl struct {
	sessions session.Store
	userRepo repository.UserRepository
}

func NewAuthGuard(sessions session.Store, userRepo repository.UserRepository) AuthGuard {
	return &authGuardImpl{
		sessions: sessions,
		userRepo: userRepo,
	}
}

func (g *authGuardImpl) RequireLogin(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}

	userID, err := g.sessions.Lookup(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrAuthRequired
	}
	if err != nil {
		return nil, storageErr("Failed to load session", err)
	}

	user, err := g.userRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionUserGone
	}
	if err != nil {
		return nil, storageErr("Failed to load user", err)
	}

	return user, nil
}

func (g *authGuardImpl) RequireAdmin(ctx context.Context, token string) (*model.User, error) {
	user, err := g.RequireLogin(ctx, token)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrAdminRequired
	}
	return user, nil
}
