package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-app/middlewares"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/services"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

var errUnknownIngredient = errors.New("unknown ingredient")

func checkIngredientsExist(tx *gorm.DB, lines []recipeLine) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(lines))
	seen := map[uint]bool{}
	for _, l := range lines {
		if !seen[l.IngredientID] {
			seen[l.IngredientID] = true
			ids = append(ids, l.IngredientID)
		}
	}
	var n int64
	if err := tx.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return err
	}
	if int(n) != len(ids) {
		return fmt.Errorf("%w in recipe", errUnknownIngredient)
	}
	return nil
}

type InventoryController struct {
	DB        *gorm.DB
	Inventory *services.InventoryService
}

func NewInventoryController(db *gorm.DB, inventory *services.InventoryService) *InventoryController {
	return &InventoryController{DB: db, Inventory: inventory}
}

// GetIngredients -> ?low=true lists only ingredients at or below their threshold
func (ic *InventoryController) GetIngredients(c *gin.Context) {
	q := ic.DB.WithContext(c.Request.Context()).Order("name")
	if c.Query("low") == "true" {
		q = q.Where("stock - reserved <= min_threshold")
	}

	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of ingredients", ingredients)
}

func (ic *InventoryController) CreateIngredient(c *gin.Context) {
	var req struct {
		Name         string  `json:"name" binding:"required"`
		Unit         string  `json:"unit" binding:"required"`
		Stock        float64 `json:"stock" binding:"gte=0"`
		MinThreshold float64 `json:"minThreshold" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ing := models.Ingredient{
		Name:         strings.TrimSpace(req.Name),
		Unit:         req.Unit,
		Stock:        req.Stock,
		MinThreshold: req.MinThreshold,
	}
	if err := ic.DB.WithContext(c.Request.Context()).Create(&ing).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Ingredient created: %s (%.2f %s)", ing.Name, ing.Stock, ing.Unit)
	utils.RespondJSON(c, http.StatusCreated, "Ingredient created", ing)
}

// AdjustStock -> POST /admin/ingredients/:ingredient_id/adjust {delta}
func (ic *InventoryController) AdjustStock(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("ingredient_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid ingredient id"))
		return
	}
	var req struct {
		Delta float64 `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	ing, err := ic.Inventory.Adjust(c.Request.Context(), uint(id), req.Delta, middlewares.CurrentPrincipal(c).ActorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Ingredient not found"))
			return
		}
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Stock adjusted", ing)
}

// GetInventoryLogs -> newest first, filter by orderId or ingredientId
func (ic *InventoryController) GetInventoryLogs(c *gin.Context) {
	q := ic.DB.WithContext(c.Request.Context()).Order("created_at DESC, id DESC")
	if orderID := c.Query("orderId"); orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}
	if raw := c.Query("ingredientId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid ingredientId"))
			return
		}
		q = q.Where("ingredient_id = ?", id)
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var logs []models.InventoryLog
	if err := q.Limit(limit).Find(&logs).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Inventory logs", logs)
}
