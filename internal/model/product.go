package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product catalog product model. Discount inputs live on the record; the
// effective discount is computed per request by the pricing package and is
// never persisted separately.
type Product struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU               string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"sku"`
	Name              string     `gorm:"type:varchar(200);not null" json:"name"`
	Description       *string    `gorm:"type:text" json:"description,omitempty"`
	CategoryID        *uint64    `gorm:"index" json:"category_id,omitempty"`
	BrandID           *uint64    `gorm:"index" json:"brand_id,omitempty"`
	Images            JSONArray  `gorm:"type:json" json:"images,omitempty"`
	Price             int64      `gorm:"type:bigint;not null" json:"price"` // cents
	Stock             int        `gorm:"type:int;not null;default:0" json:"stock"`
	DiscountPercent   float64    `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	DiscountStartDate *time.Time `gorm:"type:timestamp" json:"discount_start_date,omitempty"`
	DiscountEndDate   *time.Time `gorm:"type:timestamp" json:"discount_end_date,omitempty"`
	Status            int8       `gorm:"type:tinyint;not null;default:1;index" json:"status"`
	CreatedAt         time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`

	Category *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Brand    *Brand           `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Variants []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

// TableName set name
func (Product) TableName() string {
	return "products"
}

// ProductStatus product status const
const (
	ProductStatusActive   = 1
	ProductStatusInactive = 2
	ProductStatusDeleted  = 3
)

// ProductVariant a sellable variation of a product (color, storage size).
// Bulk discount updates write the same discount fields here, once per
// variant, in addition to the parent product row.
type ProductVariant struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID         uint64     `gorm:"not null;index" json:"product_id"`
	Name              string     `gorm:"type:varchar(100);not null" json:"name"`
	Price             int64      `gorm:"type:bigint;not null" json:"price"`
	Stock             int        `gorm:"type:int;not null;default:0" json:"stock"`
	DiscountPercent   float64    `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	DiscountStartDate *time.Time `gorm:"type:timestamp" json:"discount_start_date,omitempty"`
	DiscountEndDate   *time.Time `gorm:"type:timestamp" json:"discount_end_date,omitempty"`
	CreatedAt         time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (ProductVariant) TableName() string {
	return "product_variants"
}

// Category product category. Category-level discounts apply to every product
// in the category and compete with product-level discounts (larger wins).
type Category struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name              string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description       *string    `gorm:"type:text" json:"description,omitempty"`
	DiscountPercent   float64    `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	DiscountStartDate *time.Time `gorm:"type:timestamp" json:"discount_start_date,omitempty"`
	DiscountEndDate   *time.Time `gorm:"type:timestamp" json:"discount_end_date,omitempty"`
	CreatedAt         time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Category) TableName() string {
	return "categories"
}

// Brand product brand
type Brand struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	LogoURL   *string   `gorm:"type:varchar(255)" json:"logo_url,omitempty"`
	CreatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName set name
func (Brand) TableName() string {
	return "brands"
}

// JSONArray custom json array type
type JSONArray []string

// Value implement driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implement sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONArray", value)
	}

	return json.Unmarshal(bytes, j)
}

// IsActive check if product is active
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// HasStock check if product has stock
func (p *Product) HasStock() bool {
	return p.Stock > 0
}

// GetPriceUnits get price in currency units
func (p *Product) GetPriceUnits() float64 {
	return float64(p.Price) / 100
}
