// Package pricing resolves product- and category-level discounts into the
// single percentage actually applied to a price. The tie-break rule is that
// the larger percentage wins; discounts never stack or multiply.
package pricing

import (
	"math"
	"strconv"
	"time"

	"storefront/internal/model"
)

// clampPercent normalizes a discount percentage into [0, 100]. NaN and
// negative values count as no discount; anything above 100 is capped so a
// final price can never go below zero.
func clampPercent(percent float64) float64 {
	if math.IsNaN(percent) || percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// EffectiveDiscountPercent resolves a product-level and a category-level
// discount into the effective percentage: max of the two.
func EffectiveDiscountPercent(productPercent, categoryPercent float64) float64 {
	return math.Max(clampPercent(productPercent), clampPercent(categoryPercent))
}

// DiscountedPrice applies the effective discount to a base price. For any
// basePrice >= 0 the result satisfies 0 <= result <= basePrice.
func DiscountedPrice(basePrice, productPercent, categoryPercent float64) float64 {
	if basePrice <= 0 || math.IsNaN(basePrice) {
		return 0
	}
	return basePrice * (1 - EffectiveDiscountPercent(productPercent, categoryPercent)/100)
}

// HasDiscount reports whether any discount applies, i.e. the effective
// discount is strictly greater than zero.
func HasDiscount(productPercent, categoryPercent float64) bool {
	return EffectiveDiscountPercent(productPercent, categoryPercent) > 0
}

// ParsePercent parses a user-entered percentage with a fallback-to-zero
// policy: malformed or out-of-range input never corrupts a price.
func ParsePercent(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return clampPercent(v)
}

// ActivePercent returns the record's discount percentage if now falls inside
// its optional [start, end] window, zero otherwise.
func ActivePercent(percent float64, start, end *time.Time, now time.Time) float64 {
	if start != nil && now.Before(*start) {
		return 0
	}
	if end != nil && now.After(*end) {
		return 0
	}
	return clampPercent(percent)
}

// PricedProduct is the catalog read model with resolved pricing, computed
// per request and never stored.
type PricedProduct struct {
	Product         *model.Product `json:"product"`
	EffectiveGross  int64          `json:"base_price"`       // cents
	EffectivePct    float64        `json:"effective_discount_percentage"`
	FinalPrice      int64          `json:"final_price"`      // cents
	HasDiscount     bool           `json:"has_discount"`
	CategoryPercent float64        `json:"-"`
}

// PriceProduct resolves the pricing view of a product against its category's
// discount at the given instant.
func PriceProduct(p *model.Product, category *model.Category, now time.Time) PricedProduct {
	productPct := ActivePercent(p.DiscountPercent, p.DiscountStartDate, p.DiscountEndDate, now)

	var categoryPct float64
	if category != nil {
		categoryPct = ActivePercent(category.DiscountPercent, category.DiscountStartDate, category.DiscountEndDate, now)
	}

	effective := EffectiveDiscountPercent(productPct, categoryPct)
	final := DiscountedPrice(float64(p.Price), productPct, categoryPct)

	return PricedProduct{
		Product:         p,
		EffectiveGross:  p.Price,
		EffectivePct:    effective,
		FinalPrice:      int64(math.Round(final)),
		HasDiscount:     effective > 0,
		CategoryPercent: categoryPct,
	}
}
