package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one hourly/daily bucket of the market price history for an
// item. ItemID refers to Item.ItemNameID.
type PricePoint struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	ItemID    int64           `json:"item_id" gorm:"uniqueIndex:idx_price_points_item_date;not null"`
	Date      time.Time       `json:"date" gorm:"uniqueIndex:idx_price_points_item_date;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(20,6);not null"`
	Volume    int             `json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}
