package repository

import (
	"carparts-storefront/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository stores the optional account details shown on the
// account page: profile, primary vehicle and default address.
type ProfileRepository interface {
	FindProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	FindPrimaryVehicle(ctx context.Context, userID int64) (*model.UserVehicle, error)
	FindDefaultAddress(ctx context.Context, userID int64) (*model.UserAddress, error)
	UpsertProfile(ctx context.Context, tx *gorm.DB, profile *model.UserProfile) error
	UpsertPrimaryVehicle(ctx context.Context, tx *gorm.DB, vehicle *model.UserVehicle) error
	UpsertDefaultAddress(ctx context.Context, tx *gorm.DB, address *model.UserAddress) error
}

type profileRepoImpl struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepoImpl{db: db}
}

// Find* return nil, nil when the user has no such record.

func (r *profileRepoImpl) FindProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&profile).Error
	return optional(&profile, err)
}

func (r *profileRepoImpl) FindPrimaryVehicle(ctx context.Context, userID int64) (*model.UserVehicle, error) {
	var vehicle model.UserVehicle
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary DESC, id DESC").
		Take(&vehicle).Error
	return optional(&vehicle, err)
}

func (r *profileRepoImpl) FindDefaultAddress(ctx context.Context, userID int64) (*model.UserAddress, error) {
	var address model.UserAddress
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id DESC").
		Take(&address).Error
	return optional(&address, err)
}

func (r *profileRepoImpl) UpsertProfile(ctx context.Context, tx *gorm.DB, profile *model.UserProfile) error {
	return conn(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"gender", "date_of_birth", "updated_at"}),
		}).
		Create(profile).Error
}

func (r *profileRepoImpl) UpsertPrimaryVehicle(ctx context.Context, tx *gorm.DB, vehicle *model.UserVehicle) error {
	db := conn(r.db, tx).WithContext(ctx)
	vehicle.IsPrimary = true

	var existing model.UserVehicle
	err := db.Where("user_id = ? AND is_primary = ?", vehicle.UserID, true).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(vehicle).Error
	}
	if err != nil {
		return err
	}

	vehicle.ID = existing.ID
	return db.Model(vehicle).Select("year", "make", "model", "engine").Updates(vehicle).Error
}

func (r *profileRepoImpl) UpsertDefaultAddress(ctx context.Context, tx *gorm.DB, address *model.UserAddress) error {
	db := conn(r.db, tx).WithContext(ctx)
	address.IsDefault = true

	var existing model.UserAddress
	err := db.Where("user_id = ? AND is_default = ?", address.UserID, true).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(address).Error
	}
	if err != nil {
		return err
	}

	address.ID = existing.ID
	return db.Model(address).
		Select("address_line1", "apartment", "city", "postal_code", "country").
		Updates(address).Error
}

func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
