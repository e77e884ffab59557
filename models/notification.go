package models

import (
	"time"
)

// Notification is an entry in the staff notification feed.
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   *string   `gorm:"type:varchar(64);index" json:"orderId,omitempty"`
	Audience  string    `gorm:"type:varchar(20);not null;default:'staff'" json:"audience"`
	Title     string    `gorm:"type:varchar(100)" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
