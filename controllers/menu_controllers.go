package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

type recipeLine struct {
	IngredientID uint    `json:"ingredientId" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0"`
}

type menuRequest struct {
	Name        string          `json:"name" binding:"required"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
	Available   *bool           `json:"available"`
	Ingredients []recipeLine    `json:"ingredients"`
}

// GetMenu -> public menu, available items only
func (mc *MenuController) GetMenu(c *gin.Context) {
	mc.listMenu(c, false)
}

// GetFullMenu -> staff view including unavailable items
func (mc *MenuController) GetFullMenu(c *gin.Context) {
	mc.listMenu(c, true)
}

func (mc *MenuController) listMenu(c *gin.Context, includeUnavailable bool) {
	q := mc.DB.WithContext(c.Request.Context()).Preload("Ingredients").Order("category, name")
	if !includeUnavailable {
		q = q.Where("available = ?", true)
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		q = q.Where("category = ?", category)
	}

	var items []models.MenuItem
	if err := q.Find(&items).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

// CreateMenuItem stores a menu item together with its recipe.
func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	var req menuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !req.Price.IsPositive() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("price must be greater than zero"))
		return
	}

	item := models.MenuItem{
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Price:       req.Price,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Available:   true,
	}
	if req.Available != nil {
		item.Available = *req.Available
	}
	for _, line := range req.Ingredients {
		item.Ingredients = append(item.Ingredients, models.MenuIngredient{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
		})
	}

	err := mc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := checkIngredientsExist(tx, req.Ingredients); err != nil {
			return err
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		if errors.Is(err, errUnknownIngredient) {
			utils.RespondError(c, http.StatusBadRequest, err)
			return
		}
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Menu item created: %s (%s)", item.Name, utils.FormatPeso(item.Price))
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

// UpdateMenuItem -> partial update; a non-nil ingredients list replaces the recipe
func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("menu_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid menu id"))
		return
	}

	var req struct {
		Name        *string          `json:"name"`
		Category    *string          `json:"category"`
		Price       *decimal.Decimal `json:"price"`
		Description *string          `json:"description"`
		Available   *bool            `json:"available"`
		Ingredients *[]recipeLine    `json:"ingredients"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			utils.RespondError(c, http.StatusBadRequest, errors.New("price must be greater than zero"))
			return
		}
		fields["price"] = *req.Price
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Available != nil {
		fields["available"] = *req.Available
	}

	var item models.MenuItem
	err = mc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, id).Error; err != nil {
			return err
		}
		if len(fields) > 0 {
			if err := tx.Model(&item).Updates(fields).Error; err != nil {
				return err
			}
		}
		if req.Ingredients != nil {
			if err := checkIngredientsExist(tx, *req.Ingredients); err != nil {
				return err
			}
			if err := tx.Where("menu_item_id = ?", item.ID).Delete(&models.MenuIngredient{}).Error; err != nil {
				return err
			}
			for _, line := range *req.Ingredients {
				mi := models.MenuIngredient{MenuItemID: item.ID, IngredientID: line.IngredientID, Quantity: line.Quantity}
				if err := tx.Omit("Ingredient").Create(&mi).Error; err != nil {
					return err
				}
			}
		}
		return tx.Preload("Ingredients").First(&item, id).Error
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.RespondError(c, http.StatusNotFound, errors.New("Menu item not found"))
		return
	case errors.Is(err, errUnknownIngredient):
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	case err != nil:
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

func (mc *MenuController) DeleteMenuItem(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("menu_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid menu id"))
		return
	}

	res := mc.DB.WithContext(c.Request.Context()).Select("Ingredients").Delete(&models.MenuItem{ID: uint(id)})
	if res.Error != nil {
		respondServiceError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("Menu item not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}
