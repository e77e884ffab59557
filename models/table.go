package models

import "time"

// Table is a physical café table identified by the code printed in its QR sticker.
type Table struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TableNumber string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"tableNumber"`
	Code        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Status      string    `gorm:"type:varchar(20);not null;default:'available'" json:"status"`
	LastOrderID *string   `gorm:"type:varchar(64)" json:"lastOrderId,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null" json:"updatedAt"`
}

const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableDirty     = "dirty"
)
