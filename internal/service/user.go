package service

import (
	"context"
	"errors"
	"strings"

	"carparts-storefront/internal/apperr"
	"carparts-storefront/internal/dto"
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/query"
	"carparts-storefront/internal/repository"
	"carparts-storefront/internal/validate"

	"github.com/labstack/gommon/log"
	"gorm.io/gorm"
)

const userDetailOrderLimit = 20

var (
	errSelfDelete  = apperr.Conflict("You cannot delete your own account from admin panel")
	errSelfDemote  = apperr.Conflict("You cannot remove your own admin role")
	errAdminDelete = apperr.Conflict("Deleting other admin accounts is not allowed")
	errUserMissing = apperr.NotFound("User not found")
)

// UserService backs the admin user pages.
type UserService interface {
	List(ctx context.Context, params query.Params) (*query.Page[model.User], error)
	Get(ctx context.Context, userID int64) (*dto.UserDetailResponse, error)
	Update(ctx context.Context, actor *model.User, userID int64, req *dto.UserUpdateRequest) (*model.User, error)
	Delete(ctx context.Context, actor *model.User, userID int64) error
}

type userServiceImpl struct {
	userRepo  repository.UserRepository
	orderRepo repository.OrderRepository
	validator *validate.Validator
	logger    *log.Logger
}

func NewUserService(
	userRepo repository.UserRepository,
	orderRepo repository.OrderRepository,
	validator *validate.Validator,
	logger *log.Logger,
) UserService {
	return &userServiceImpl{
		userRepo:  userRepo,
		orderRepo: orderRepo,
		validator: validator,
		logger:    logger,
	}
}

func (s *userServiceImpl) List(ctx context.Context, params query.Params) (*query.Page[model.User], error) {
	page, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, storageErr("Failed to load users", err)
	}
	return page, nil
}

// Get loads the user and their latest orders. A failing orders query is
// reported in OrdersError instead of failing the whole request.
func (s *userServiceImpl) Get(ctx context.Context, userID int64) (*dto.UserDetailResponse, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.UserDetailResponse{User: user, Orders: []*model.Order{}}
	orders, err := s.orderRepo.ListByUser(ctx, userID, userDetailOrderLimit)
	if err != nil {
		s.logger.Warnf("load orders for user %d: %v", userID, err)
		resp.OrdersError = "Failed to load orders"
		return resp, nil
	}
	resp.Orders = orders
	return resp, nil
}

func (s *userServiceImpl) Update(ctx context.Context, actor *model.User, userID int64, req *dto.UserUpdateRequest) (*model.User, error) {
	user, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := validationErr(s.validator.Messages(req)); err != nil {
		return nil, err
	}

	role := user.Role
	if req.Role != "" {
		role = model.Role(req.Role)
	}
	if actor.ID == user.ID && role != model.RoleAdmin {
		return nil, errSelfDemote
	}

	if req.Email != user.Email {
		taken, err := s.userRepo.EmailTaken(ctx, req.Email, user.ID)
		if err != nil {
			return nil, storageErr("Failed to update user", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	user.Name = req.Name
	user.Email = req.Email
	user.Role = role
	if req.IsVerified != nil {
		user.IsVerified = *req.IsVerified
	}

	err = s.userRepo.Update(ctx, user)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, storageErr("Failed to update user", err)
	}
	return user, nil
}

func (s *userServiceImpl) Delete(ctx context.Context, actor *model.User, userID int64) error {
	if userID <= 0 {
		return apperr.Validation("id is required and must be a positive integer")
	}
	if actor.ID == userID {
		return errSelfDelete
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return errAdminDelete
	}

	found, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return storageErr("Failed to delete user", err)
	}
	if !found {
		return errUserMissing
	}
	return nil
}

func (s *userServiceImpl) find(ctx context.Context, userID int64) (*model.User, error) {
	if userID <= 0 {
		return nil, apperr.Validation("Valid id parameter is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUserMissing
	}
	if err != nil {
		return nil, storageErr("Failed to load user", err)
	}
	return user, nil
}
