package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cafe-app/lifecycle"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

// IngredientLedger is the inventory collaborator the order flow calls into.
// Reserve and Restore run inside the caller's transaction; Deduct runs on its
// own and must be idempotent per order.
type IngredientLedger interface {
	Annotate(ctx context.Context, tx *gorm.DB, items []models.LineItem) ([]models.LineItem, error)
	Reserve(ctx context.Context, tx *gorm.DB, order *models.Order) error
	Deduct(ctx context.Context, order *models.Order, actor string) error
	Restore(ctx context.Context, tx *gorm.DB, order *models.Order, actor string) error
}

type InventoryService struct {
	db *gorm.DB
}

func NewInventoryService(db *gorm.DB) *InventoryService {
	return &InventoryService{db: db}
}

// Annotate attaches each menu item's recipe, scaled by quantity, to line items
// that reference a menu item. Ingredients already on an item are discarded.
func (s *InventoryService) Annotate(ctx context.Context, tx *gorm.DB, items []models.LineItem) ([]models.LineItem, error) {
	db := s.conn(ctx, tx)
	out := make([]models.LineItem, len(items))
	copy(out, items)

	for i := range out {
		out[i].Ingredients = nil
		if out[i].MenuItemID == nil {
			continue
		}
		var recipe []models.MenuIngredient
		if err := db.Where("menu_item_id = ?", *out[i].MenuItemID).Find(&recipe).Error; err != nil {
			return nil, fmt.Errorf("load recipe for menu item %d: %w", *out[i].MenuItemID, err)
		}
		for _, r := range recipe {
			out[i].Ingredients = append(out[i].Ingredients, models.IngredientUse{
				IngredientID: r.IngredientID,
				Quantity:     r.Quantity * float64(out[i].Quantity),
			})
		}
	}
	return out, nil
}

func (s *InventoryService) Reserve(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	uses, err := ingredientUses(order)
	if err != nil {
		return err
	}
	db := s.conn(ctx, tx)
	for _, u := range uses {
		res := db.Model(&models.Ingredient{}).
			Where("id = ?", u.IngredientID).
			Update("reserved", gorm.Expr("reserved + ?", u.Quantity))
		if res.Error != nil {
			return fmt.Errorf("reserve ingredient %d: %w", u.IngredientID, res.Error)
		}
		if res.RowsAffected == 0 {
			return invalid(fmt.Sprintf("Unknown ingredient %d", u.IngredientID))
		}
		if err := s.writeLog(db, order.OrderID, u, models.InventoryReserve, "system"); err != nil {
			return err
		}
	}
	return nil
}

// Deduct debits stock for an order reaching ready. A second call for the same
// order is a no-op, and so is a call for an order cancelled in the meantime.
func (s *InventoryService) Deduct(ctx context.Context, order *models.Order, actor string) error {
	uses, err := ingredientUses(order)
	if err != nil {
		return err
	}
	if len(uses) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Select("status").Where("order_id = ?", order.OrderID).First(&current).Error; err != nil {
			return fmt.Errorf("load order %s: %w", order.OrderID, err)
		}
		if current.Status == string(lifecycle.StatusCancelled) {
			utils.InfoLogger.WithField("order_id", order.OrderID).Info("order cancelled, skipping deduction")
			return nil
		}
		done, err := s.hasLog(tx, order.OrderID, models.InventoryDeduct)
		if err != nil {
			return err
		}
		if done {
			utils.InfoLogger.WithField("order_id", order.OrderID).Info("ingredients already deducted")
			return nil
		}
		for _, u := range uses {
			err := tx.Model(&models.Ingredient{}).
				Where("id = ?", u.IngredientID).
				Updates(map[string]interface{}{
					"stock":    gorm.Expr("stock - ?", u.Quantity),
					"reserved": gorm.Expr("CASE WHEN reserved > ? THEN reserved - ? ELSE 0 END", u.Quantity, u.Quantity),
				}).Error
			if err != nil {
				return fmt.Errorf("deduct ingredient %d: %w", u.IngredientID, err)
			}
			if err := s.writeLog(tx, order.OrderID, u, models.InventoryDeduct, actor); err != nil {
				return err
			}
		}
		utils.InfoLogger.WithFields(logrus.Fields{
			"order_id": order.OrderID,
			"uses":     len(uses),
		}).Info("ingredients deducted")
		return nil
	})
}

// Restore undoes an order's inventory footprint on cancel: one increment and
// one log entry per annotated use. Deducted stock goes back to Stock, an
// outstanding reservation is released.
func (s *InventoryService) Restore(ctx context.Context, tx *gorm.DB, order *models.Order, actor string) error {
	uses, err := ingredientUses(order)
	if err != nil {
		return err
	}
	if len(uses) == 0 {
		return nil
	}
	db := s.conn(ctx, tx)

	restored, err := s.hasLog(db, order.OrderID, models.InventoryRestore)
	if err != nil || restored {
		return err
	}
	deducted, err := s.hasLog(db, order.OrderID, models.InventoryDeduct)
	if err != nil {
		return err
	}

	for _, u := range uses {
		var update map[string]interface{}
		if deducted {
			update = map[string]interface{}{"stock": gorm.Expr("stock + ?", u.Quantity)}
		} else {
			update = map[string]interface{}{
				"reserved": gorm.Expr("CASE WHEN reserved > ? THEN reserved - ? ELSE 0 END", u.Quantity, u.Quantity),
			}
		}
		if err := db.Model(&models.Ingredient{}).Where("id = ?", u.IngredientID).Updates(update).Error; err != nil {
			return fmt.Errorf("restore ingredient %d: %w", u.IngredientID, err)
		}
		if err := s.writeLog(db, order.OrderID, u, models.InventoryRestore, actor); err != nil {
			return err
		}
	}
	return nil
}

// Adjust applies a manual stock correction.
func (s *InventoryService) Adjust(ctx context.Context, ingredientID uint, delta float64, actor string) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ing, ingredientID).Error; err != nil {
			return err
		}
		if ing.Stock+delta < 0 {
			return invalid("Stock cannot go below zero")
		}
		if err := tx.Model(&ing).Update("stock", gorm.Expr("stock + ?", delta)).Error; err != nil {
			return err
		}
		return s.writeLog(tx, "", models.IngredientUse{IngredientID: ingredientID, Quantity: delta}, models.InventoryAdjust, actor)
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(&ing, ingredientID).Error; err != nil {
		return nil, err
	}
	return &ing, nil
}

func (s *InventoryService) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func (s *InventoryService) hasLog(db *gorm.DB, orderID, action string) (bool, error) {
	var n int64
	err := db.Model(&models.InventoryLog{}).
		Where("order_id = ? AND action = ?", orderID, action).
		Count(&n).Error
	return n > 0, err
}

func (s *InventoryService) writeLog(db *gorm.DB, orderID string, u models.IngredientUse, action, actor string) error {
	var ing models.Ingredient
	if err := db.Select("stock").First(&ing, u.IngredientID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	entry := models.InventoryLog{
		OrderID:      orderID,
		IngredientID: u.IngredientID,
		Action:       action,
		Quantity:     u.Quantity,
		StockAfter:   ing.Stock,
		Actor:        actor,
	}
	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("write inventory log: %w", err)
	}
	return nil
}

// ingredientUses flattens every annotated use of an order, one entry per
// (line item, ingredient) pair.
func ingredientUses(order *models.Order) ([]models.IngredientUse, error) {
	items, err := order.LineItems()
	if err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", order.OrderID, err)
	}
	var uses []models.IngredientUse
	for _, item := range items {
		for _, u := range item.Ingredients {
			if u.Quantity > 0 {
				uses = append(uses, u)
			}
		}
	}
	return uses, nil
}
