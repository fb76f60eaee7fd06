package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/mailer"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/session"
	"carparts-storefront/internal/validate"

	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minVerificationTokenLen = 20

type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*model.User, string, error)
	Logout(ctx context.Context, token string) error
	VerifyEmail(ctx context.Context, token string) error
	Me(ctx context.Context, user *model.User) (*dto.MeResponse, error)
	UpdateMe(ctx context.Context, user *model.User, req *dto.UpdateMeRequest) (*dto.MeResponse, error)
}

type AuthConfig struct {
	VerificationTTL time.Duration
	VerifyURL       string
}

type authServiceImpl struct {
	db               *gorm.DB
	cfg              AuthConfig
	sessions         session.Store
	userRepo         repository.UserRepository
	profileRepo      repository.ProfileRepository
	verificationRepo repository.EmailVerificationRepository
	mailer           mailer.Mailer
	validator        *validate.Validator
	logger           *log.Logger
	now              func() time.Time
}

func NewAuthService(
	db *gorm.DB,
	cfg AuthConfig,
	sessions session.Store,
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	verificationRepo repository.EmailVerificationRepository,
	mail mailer.Mailer,
	validator *validate.Validator,
	logger *log.Logger,
) AuthService {
	return &authServiceImpl{
		db:               db,
		cfg:              cfg,
		sessions:         sessions,
		userRepo:         userRepo,
		profileRepo:      profileRepo,
		verificationRepo: verificationRepo,
		mailer:           mail,
		validator:        validator,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validationErr(s.validator.Messages(req)); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.EmailTaken(ctx, req.Email, 0)
	if err != nil {
		return nil, storageErr("Registration failed", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rawToken, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		IsVerified:   false,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		return s.verificationRepo.Create(ctx, tx, &model.EmailVerification{
			UserID:    user.ID,
			TokenHash: hashVerificationToken(rawToken),
			ExpiresAt: s.now().Add(s.cfg.VerificationTTL),
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, storageErr("Registration failed", err)
	}

	if err := s.mailer.Send(ctx, mailer.Message{
		To:      user.Email,
		Subject: "Confirm your email address",
		Body:    "Open this link to verify your account: " + s.verificationLink(rawToken),
	}); err != nil {
		s.logger.Warnf("send verification email to user %d: %v", user.ID, err)
	}

	return user, nil
}

func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*model.User, string, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validationErr(s.validator.Messages(req)); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", storageErr("Login failed", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", storageErr("Login failed", err)
	}

	return user, token, nil
}

func (s *authServiceImpl) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return storageErr("Logout failed", err)
	}
	return nil
}

func (s *authServiceImpl) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if len(token) < minVerificationTokenLen {
		return apperr.Validation("Missing or invalid token")
	}

	verification, err := s.verificationRepo.FindByTokenHash(ctx, hashVerificationToken(token))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Validation("Invalid token")
	}
	if err != nil {
		return storageErr("Verification failed", err)
	}
	if verification.UsedAt != nil {
		return apperr.Validation("Token already used")
	}
	if !s.now().Before(verification.ExpiresAt) {
		return apperr.Validation("Token expired")
	}

	errAlreadyUsed := apperr.Validation("Token already used")
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		consumed, err := s.verificationRepo.MarkUsed(ctx, tx, verification.ID, s.now())
		if err != nil {
			return fmt.Errorf("mark token used: %w", err)
		}
		if !consumed {
			return errAlreadyUsed
		}

		if err := s.userRepo.MarkVerified(ctx, tx, verification.UserID); err != nil {
			return fmt.Errorf("mark user verified: %w", err)
		}
		return nil
	})
	if errors.Is(err, errAlreadyUsed) {
		return errAlreadyUsed
	}
	if err != nil {
		return storageErr("Verification failed", err)
	}
	return nil
}

func (s *authServiceImpl) Me(ctx context.Context, user *model.User) (*dto.MeResponse, error) {
	resp := &dto.MeResponse{User: user}

	var err error
	if resp.Profile, err = s.profileRepo.FindProfile(ctx, user.ID); err != nil {
		return nil, storageErr("Failed to load profile", err)
	}
	if resp.Vehicle, err = s.profileRepo.FindPrimaryVehicle(ctx, user.ID); err != nil {
		return nil, storageErr("Failed to load profile", err)
	}
	if resp.Address, err = s.profileRepo.FindDefaultAddress(ctx, user.ID); err != nil {
		return nil, storageErr("Failed to load profile", err)
	}

	return resp, nil
}

func (s *authServiceImpl) UpdateMe(ctx context.Context, user *model.User, req *dto.UpdateMeRequest) (*dto.MeResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validationErr(s.validator.Messages(req)); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.UpdateName(ctx, tx, user.ID, req.Name); err != nil {
			return fmt.Errorf("update name: %w", err)
		}

		if p := req.Profile; p != nil {
			err := s.profileRepo.UpsertProfile(ctx, tx, &model.UserProfile{
				UserID:      user.ID,
				Gender:      p.Gender,
				DateOfBirth: p.DateOfBirth,
			})
			if err != nil {
				return fmt.Errorf("upsert profile: %w", err)
			}
		}

		if v := req.Vehicle; v != nil {
			err := s.profileRepo.UpsertPrimaryVehicle(ctx, tx, &model.UserVehicle{
				UserID: user.ID,
				Year:   v.Year,
				Make:   strings.TrimSpace(v.Make),
				Model:  strings.TrimSpace(v.Model),
				Engine: strings.TrimSpace(v.Engine),
			})
			if err != nil {
				return fmt.Errorf("upsert vehicle: %w", err)
			}
		}

		if a := req.Address; a != nil {
			err := s.profileRepo.UpsertDefaultAddress(ctx, tx, &model.UserAddress{
				UserID:       user.ID,
				AddressLine1: strings.TrimSpace(a.AddressLine1),
				Apartment:    strings.TrimSpace(a.Apartment),
				City:         strings.TrimSpace(a.City),
				PostalCode:   strings.TrimSpace(a.PostalCode),
				Country:      strings.TrimSpace(a.Country),
			})
			if err != nil {
				return fmt.Errorf("upsert address: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("Failed to update profile", err)
	}

	updated := *user
	updated.Name = req.Name
	return s.Me(ctx, &updated)
}

func (s *authServiceImpl) verificationLink(rawToken string) string {
	sep := "?"
	if strings.Contains(s.cfg.VerifyURL, "?") {
		sep = "&"
	}
	return s.cfg.VerifyURL + sep + "token=" + url.QueryEscape(rawToken)
}

func newVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashVerificationToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
