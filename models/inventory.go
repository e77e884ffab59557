package models

import "time"

type Ingredient struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Unit         string    `gorm:"type:varchar(20);not null" json:"unit"`
	Stock        float64   `gorm:"not null;default:0" json:"stock"`
	Reserved     float64   `gorm:"not null;default:0" json:"reserved"`
	MinThreshold float64   `gorm:"not null;default:0" json:"minThreshold"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

// Available is stock not yet promised to an open order.
func (i Ingredient) Available() float64 {
	return i.Stock - i.Reserved
}

const (
	InventoryReserve = "reserve"
	InventoryDeduct  = "deduct"
	InventoryRestore = "restore"
	InventoryAdjust  = "adjust"
)

type InventoryLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      string    `gorm:"type:varchar(64);index" json:"orderId,omitempty"`
	IngredientID uint      `gorm:"not null;index" json:"ingredientId"`
	Action       string    `gorm:"type:varchar(20);not null" json:"action"`
	Quantity     float64   `gorm:"not null" json:"quantity"`
	StockAfter   float64   `json:"stockAfter"`
	Actor        string    `gorm:"type:varchar(64)" json:"actor,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
}
