package repository

import (
	"carparts-storefront/internal/model"
	"carparts-storefront/internal/query"
	"context"

	"gorm.io/gorm"
)

var userListSpec = &query.Spec{
	Table:         "users",
	SearchColumns: []string{"name", "email"},
	Filters: []query.Filter{
		{Param: "role", Column: "role", Kind: query.Enum, Allowed: []string{string(model.RoleUser), string(model.RoleAdmin)}},
		{Param: "is_verified", Column: "is_verified", Kind: query.Bool},
	},
	Sorts: map[string]string{
		"newest":    "id DESC",
		"oldest":    "id ASC",
		"name_asc":  "name ASC",
		"name_desc": "name DESC",
	},
	DefaultSort: "newest",
	TieBreaker:  "id DESC",
}

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error)
	List(ctx context.Context, params query.Params) (*query.Page[model.User], error)
	Update(ctx context.Context, user *model.User) error
	UpdateName(ctx context.Context, tx *gorm.DB, userID int64, name string) error
	MarkVerified(ctx context.Context, tx *gorm.DB, userID int64) error
	Delete(ctx context.Context, userID int64) (bool, error)
}

type userRepoImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepoImpl{db: db}
}

func (r *userRepoImpl) Create(ctx context.Context, tx *gorm.DB, user *model.User) error {
	return conn(r.db, tx).WithContext(ctx).Create(user).Error
}

func (r *userRepoImpl) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepoImpl) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepoImpl) EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? AND id <> ?", email, exceptUserID).
		Count(&count).Error

	return count > 0, err
}

func (r *userRepoImpl) List(ctx context.Context, params query.Params) (*query.Page[model.User], error) {
	return query.Run[model.User](ctx, r.db, userListSpec, params)
}

func (r *userRepoImpl) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Model(user).
		Select("name", "email", "role", "is_verified").
		Updates(user).Error
}

func (r *userRepoImpl) UpdateName(ctx context.Context, tx *gorm.DB, userID int64, name string) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("name", name).Error
}

func (r *userRepoImpl) MarkVerified(ctx context.Context, tx *gorm.DB, userID int64) error {
	return conn(r.db, tx).WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("is_verified", true).Error
}

func (r *userRepoImpl) Delete(ctx context.Context, userID int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.User{}, userID)
	return res.RowsAffected > 0, res.Error
}
