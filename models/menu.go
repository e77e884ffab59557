package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"type:varchar(255);not null" json:"name"`
	Category    string           `gorm:"type:varchar(100);index" json:"category"`
	Price       decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"price"`
	Description string           `gorm:"type:text" json:"description,omitempty"`
	ImageURL    string           `gorm:"type:varchar(255)" json:"imageUrl,omitempty"`
	Available   bool             `gorm:"not null;default:true" json:"available"`
	Ingredients []MenuIngredient `gorm:"foreignKey:MenuItemID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"ingredients,omitempty"`
	CreatedAt   time.Time        `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updatedAt"`
}

// MenuIngredient is one recipe line: how much of an ingredient a single
// serving consumes.
type MenuIngredient struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	MenuItemID   uint       `gorm:"not null;index" json:"menuItemId"`
	IngredientID uint       `gorm:"not null" json:"ingredientId"`
	Ingredient   Ingredient `gorm:"foreignKey:IngredientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"ingredient,omitempty"`
	Quantity     float64    `gorm:"not null" json:"quantity"`
}
