package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product catalog product
type Product struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement;comment:product ID" json:"id"`
	Name        string          `gorm:"type:varchar(200);not null;comment:product name" json:"name"`
	Description string          `gorm:"type:text;comment:product description" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;comment:unit price" json:"price"`
	Category    string          `gorm:"type:varchar(100);index;comment:category" json:"category"`
	Stock       int             `gorm:"not null;default:0;comment:units on hand" json:"stock"`
	ImageURL    string          `gorm:"type:varchar(500);comment:image url" json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName set name
func (Product) TableName() string {
	return "products"
}

// HasStock reports whether quantity units can be taken
func (p *Product) HasStock(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}
