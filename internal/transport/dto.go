package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/shop_api/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// CategoryRequest serves create, PUT and PATCH; absent fields stay nil.
type CategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ProductRequest struct {
	Name       *string          `json:"name"`
	CategoryID *uint            `json:"category_id"`
	Price      *decimal.Decimal `json:"price"`
	Stock      *int             `json:"stock"`
	IsActive   *bool            `json:"is_active"`
}

type CreateOrderRequest struct {
	ProductID *uint `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type ChangeStatusRequest struct {
	Status *string `json:"status"`
}

type UserView struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

func NewUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

type CategoryView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func NewCategoryView(c *models.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, Description: c.Description}
}

type ProductView struct {
	ID       uint         `json:"id"`
	Name     string       `json:"name"`
	Price    string       `json:"price"`
	Stock    int          `json:"stock"`
	IsActive bool         `json:"is_active"`
	Category CategoryView `json:"category"`
}

func NewProductView(p *models.Product) ProductView {
	return ProductView{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.StringFixed(2),
		Stock:    p.Stock,
		IsActive: p.IsActive,
		Category: NewCategoryView(&p.Category),
	}
}

type OrderProductView struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Category string `json:"category"`
}

type OrderView struct {
	ID         uint               `json:"id"`
	CustomerID uint               `json:"customer_id"`
	Product    OrderProductView   `json:"product"`
	Quantity   int                `json:"quantity"`
	Status     models.OrderStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	TotalPrice string             `json:"total_price"`
}

// NewOrderView needs Product and Product.Category loaded.
func NewOrderView(o *models.Order) OrderView {
	return OrderView{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Product: OrderProductView{
			ID:       o.Product.ID,
			Name:     o.Product.Name,
			Price:    o.Product.Price.StringFixed(2),
			Category: o.Product.Category.Name,
		},
		Quantity:   o.Quantity,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		TotalPrice: o.TotalPrice().StringFixed(2),
	}
}
