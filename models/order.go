package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Order struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	OrderID            string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"orderId"`
	OrderNumber        string          `gorm:"type:varchar(32);index;not null" json:"shortOrderCode"`
	CustomerName       string          `gorm:"type:varchar(100);not null" json:"customerName"`
	CustomerPhone      string          `gorm:"type:varchar(30)" json:"customerPhone,omitempty"`
	CustomerEmail      string          `gorm:"type:varchar(255)" json:"customerEmail,omitempty"`
	Status             string          `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	PaymentStatus      string          `gorm:"type:varchar(20);not null;default:'pending'" json:"paymentStatus"`
	PaymentMethod      string          `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	OrderType          string          `gorm:"type:varchar(20);not null" json:"orderType"`
	TableNumber        *string         `gorm:"type:varchar(20)" json:"tableNumber,omitempty"`
	TableID            *uint           `gorm:"index" json:"tableId,omitempty"`
	Items              datatypes.JSON  `gorm:"not null" json:"items"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalAmount"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	QueuePosition      int             `gorm:"not null;default:0" json:"queuePosition"`
	QRCode             string          `gorm:"type:varchar(255)" json:"qrCode,omitempty"`
	StaffID            *string         `gorm:"type:varchar(64)" json:"staffId,omitempty"`
	CancelledBy        *string         `gorm:"type:varchar(64)" json:"cancelledBy,omitempty"`
	CancellationReason *string         `gorm:"type:text" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	OrderTime          time.Time       `gorm:"not null;index" json:"orderTime"`
	EstimatedReadyTime time.Time       `json:"estimatedReadyTime"`
	CompletedTime      *time.Time      `json:"completedTime,omitempty"`
	CreatedAt          time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt          time.Time       `gorm:"not null" json:"updatedAt"`
}

// LineItem is one entry of the serialized Items blob.
type LineItem struct {
	MenuItemID     *uint             `json:"menuItemId,omitempty"`
	Name           string            `json:"name"`
	Quantity       int               `json:"quantity"`
	UnitPrice      decimal.Decimal   `json:"unitPrice"`
	Customizations map[string]string `json:"customizations,omitempty"`
	Ingredients    []IngredientUse   `json:"ingredients,omitempty"`
}

// IngredientUse is the total quantity of one ingredient a line item consumes.
type IngredientUse struct {
	IngredientID uint    `json:"ingredientId"`
	Quantity     float64 `json:"quantity"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineItems rehydrates the Items blob.
func (o *Order) LineItems() ([]LineItem, error) {
	var items []LineItem
	if len(o.Items) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(o.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (o *Order) SetLineItems(items []LineItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	o.Items = datatypes.JSON(raw)
	return nil
}
