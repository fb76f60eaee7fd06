package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:120;not null" json:"name"`
	Email        string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:16;index;not null" json:"role"`
	IsVerified   bool      `gorm:"not null" json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type Product struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null;index" json:"name"`
	Brand       string          `gorm:"size:120;not null;index" json:"brand"`
	Category    string          `gorm:"size:120;not null;index" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null" json:"stock"`
	ImageURL    *string         `gorm:"size:512" json:"image_url"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"-"`
}

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

type Coupon struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"size:64;uniqueIndex;not null" json:"code"`
	DiscountType  DiscountType    `gorm:"size:16;not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	ValidFrom     *time.Time      `json:"valid_from"`
	ValidTo       *time.Time      `json:"valid_to"`
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	UsageLimit    *int            `json:"usage_limit"`
	UsedCount     int             `gorm:"not null" json:"used_count"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"-"`
}

type EmailVerification struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"index;not null"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null"` // sha256 hex of the emailed token
	ExpiresAt time.Time  `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Session backs the database session store.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    int64     `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}

type UserProfile struct {
	UserID      int64     `gorm:"primaryKey" json:"-"`
	Gender      string    `gorm:"size:16" json:"gender"`
	DateOfBirth string    `gorm:"size:10" json:"date_of_birth"` // YYYY-MM-DD
	UpdatedAt   time.Time `json:"-"`
}

type UserVehicle struct {
	ID        int64  `gorm:"primaryKey" json:"-"`
	UserID    int64  `gorm:"index;not null" json:"-"`
	Year      int    `json:"year"`
	Make      string `gorm:"size:64" json:"make"`
	Model     string `gorm:"size:64" json:"model"`
	Engine    string `gorm:"size:64" json:"engine"`
	IsPrimary bool   `gorm:"not null" json:"-"`
}

type UserAddress struct {
	ID           int64  `gorm:"primaryKey" json:"-"`
	UserID       int64  `gorm:"index;not null" json:"-"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	Apartment    string `gorm:"size:64" json:"apartment"`
	City         string `gorm:"size:120" json:"city"`
	PostalCode   string `gorm:"size:32" json:"postal_code"`
	Country      string `gorm:"size:64" json:"country"`
	IsDefault    bool   `gorm:"not null" json:"-"`
}
