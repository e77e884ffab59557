package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReceiptPending  = "pending"
	ReceiptVerified = "verified"
	ReceiptRejected = "rejected"
)

// PaymentReceipt is a customer-uploaded proof of an e-wallet payment.
type PaymentReceipt struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         string          `gorm:"type:varchar(64);index;not null" json:"orderId"`
	FilePath        string          `gorm:"type:varchar(255);not null" json:"filePath"`
	OriginalName    string          `gorm:"type:varchar(255)" json:"originalName"`
	ReferenceNumber string          `gorm:"type:varchar(100)" json:"referenceNumber,omitempty"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	Status          string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ReviewedBy      *string         `gorm:"type:varchar(64)" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time      `json:"reviewedAt,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updatedAt"`
}
