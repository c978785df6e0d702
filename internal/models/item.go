package models

import "time"

// Item is a marketplace listing discovered through catalog search and
// enriched with the item_nameid scraped from its listing page. Rows are
// written once and never updated.
type Item struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	ItemNameID   int64     `json:"item_name_id" gorm:"uniqueIndex:idx_items_game_name_id;not null"`
	ItemHashName string    `json:"item_hash_name" gorm:"size:255;uniqueIndex:idx_items_game_hash;not null"`
	ItemName     string    `json:"item_name" gorm:"size:255"`
	ItemIcon     string    `json:"item_icon" gorm:"type:text"`
	GameID       int       `json:"game_id" gorm:"uniqueIndex:idx_items_game_hash;uniqueIndex:idx_items_game_name_id;not null"`
	CreatedAt    time.Time `json:"created_at"`
}
