package models

import (
	"time"
)

type Reservation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ContactName  string    `gorm:"type:varchar(100);not null" json:"contactName"`
	ContactPhone string    `gorm:"type:varchar(30);not null" json:"contactPhone"`
	ContactEmail string    `gorm:"type:varchar(255)" json:"contactEmail,omitempty"`
	EventType    string    `gorm:"type:varchar(50)" json:"eventType"`
	EventDate    time.Time `gorm:"not null;index" json:"eventDate"`
	PartySize    int       `gorm:"not null" json:"partySize"`
	Notes        string    `gorm:"type:text" json:"notes,omitempty"`
	Status       string    `gorm:"type:varchar(15);not null;default:'pending'" json:"status"`
	HandledBy    *string   `gorm:"type:varchar(64)" json:"handledBy,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}
