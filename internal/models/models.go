package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"    json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:254;not null"           json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	Role         Role      `gorm:"size:10;not null;default:customer" json:"role"`
	CreatedAt    time.Time `json:"-"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"            json:"id"`
	UserID    uint   `gorm:"index;not null"        json:"user_id"`
	JTI       string `gorm:"size:36;uniqueIndex;not null" json:"jti"`
	TokenHash string `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt int64  `gorm:"not null"              json:"expires_at"`
	Revoked   bool   `gorm:"not null;default:false" json:"revoked"`
}

type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
}

type Product struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"`
	Name       string          `gorm:"size:200;not null;uniqueIndex:idx_product_name_category"`
	CategoryID uint            `gorm:"not null;index;uniqueIndex:idx_product_name_category"`
	Category   Category        `gorm:"constraint:OnDelete:CASCADE"`
	Stock      int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0"`
	Price      decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	IsActive   bool            `gorm:"not null"`
}

type Order struct {
	ID         uint        `gorm:"primaryKey;autoIncrement"`
	CustomerID uint        `gorm:"not null;index"`
	Customer   User        `gorm:"constraint:OnDelete:CASCADE"`
	ProductID  uint        `gorm:"not null;index"`
	Product    Product     `gorm:"constraint:OnDelete:RESTRICT"`
	Quantity   int         `gorm:"not null;check:chk_orders_quantity,quantity >= 1"`
	Status     OrderStatus `gorm:"size:10;not null;default:pending;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TotalPrice is quantity times the current product price; Product must be loaded.
func (o *Order) TotalPrice() decimal.Decimal {
	return o.Product.Price.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// All lists every table in migration order.
func All() []any {
	return []any{&User{}, &RefreshToken{}, &Category{}, &Product{}, &Order{}}
}
