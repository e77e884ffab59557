package services

import (
	"context"

	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

// NotificationRecorder writes the staff notification feed. Failures are
// logged and never surface to the caller.
type NotificationRecorder struct {
	db *gorm.DB
}

func NewNotificationRecorder(db *gorm.DB) *NotificationRecorder {
	return &NotificationRecorder{db: db}
}

func (n *NotificationRecorder) Record(ctx context.Context, orderID string, title, message string) {
	if n == nil {
		return
	}
	entry := models.Notification{
		Audience: RoleStaff,
		Title:    title,
		Message:  message,
	}
	if orderID != "" {
		entry.OrderID = &orderID
	}
	if err := n.db.WithContext(ctx).Create(&entry).Error; err != nil {
		utils.ErrorLogger.Errorf("Failed to record notification for %s: %v", orderID, err)
	}
}
