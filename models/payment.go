package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTransaction records each time an order's payment is settled.
type PaymentTransaction struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    string          `gorm:"type:varchar(64);index;not null" json:"orderId"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method     string          `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	Status     string          `gorm:"type:varchar(20);not null" json:"status"`
	Reference  string          `gorm:"type:varchar(100);uniqueIndex" json:"reference"`
	ReceiptID  *uint           `json:"receiptId,omitempty"`
	VerifiedBy *string         `gorm:"type:varchar(64)" json:"verifiedBy,omitempty"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time       `gorm:"not null" json:"createdAt"`
}
