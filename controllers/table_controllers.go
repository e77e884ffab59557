package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

var tableStatuses = map[string]bool{
	models.TableAvailable: true,
	models.TableOccupied:  true,
	models.TableDirty:     true,
}

type TableController struct {
	DB      *gorm.DB
	BaseURL string
}

func NewTableController(db *gorm.DB, baseURL string) *TableController {
	return &TableController{DB: db, BaseURL: strings.TrimRight(baseURL, "/")}
}

type tableView struct {
	models.Table
	OrderURL string `json:"orderUrl,omitempty"`
}

// view adds the URL printed in the table's QR sticker.
func (tc *TableController) view(t models.Table) tableView {
	v := tableView{Table: t}
	if tc.BaseURL != "" {
		v.OrderURL = tc.BaseURL + "/order?table=" + t.Code
	}
	return v
}

// CreateTable -> adds a table and issues its QR code
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"tableNumber" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		TableNumber: strings.TrimSpace(req.TableNumber),
		Code:        strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Status:      models.TableAvailable,
	}
	if err := tc.DB.WithContext(c.Request.Context()).Create(&table).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("New table created: %s (code=%s)", table.TableNumber, table.Code)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", tc.view(table))
}

// GetAllTables -> optional ?status= filter
func (tc *TableController) GetAllTables(c *gin.Context) {
	q := tc.DB.WithContext(c.Request.Context()).Order("table_number")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var tables []models.Table
	if err := q.Find(&tables).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	views := make([]tableView, 0, len(tables))
	for _, t := range tables {
		views = append(views, tc.view(t))
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", views)
}

// ResolveTable -> public lookup of a scanned QR code
func (tc *TableController) ResolveTable(c *gin.Context) {
	var table models.Table
	err := tc.DB.WithContext(c.Request.Context()).Where("code = ?", c.Param("code")).First(&table).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Unknown table code"))
			return
		}
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", gin.H{
		"tableNumber": table.TableNumber,
		"code":        table.Code,
		"status":      table.Status,
	})
}

// UpdateTableStatus -> e.g. staff marking a dirty table available again
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("table_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table id"))
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !tableStatuses[body.Status] {
		utils.RespondError(c, http.StatusBadRequest, errors.New("status must be available, occupied or dirty"))
		return
	}

	var table models.Table
	if err := tc.DB.WithContext(c.Request.Context()).First(&table, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Table not found"))
			return
		}
		respondServiceError(c, err)
		return
	}

	table.Status = body.Status
	if err := tc.DB.WithContext(c.Request.Context()).Save(&table).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Table %s status changed to %s", table.TableNumber, table.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", tc.view(table))
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("table_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table id"))
		return
	}

	res := tc.DB.WithContext(c.Request.Context()).Delete(&models.Table{}, id)
	if res.Error != nil {
		respondServiceError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("Table not found"))
		return
	}

	utils.InfoLogger.Printf("Table %d deleted", id)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": id})
}
