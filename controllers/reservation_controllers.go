package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-app/middlewares"
	"github.com/yeremiapane/cafe-app/models"
	"github.com/yeremiapane/cafe-app/utils"
	"gorm.io/gorm"
)

var reservationStatuses = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"cancelled": true,
	"completed": true,
}

type ReservationController struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewReservationController(db *gorm.DB) *ReservationController {
	return &ReservationController{DB: db, now: time.Now}
}

// CreateReservation -> public event booking request
func (rc *ReservationController) CreateReservation(c *gin.Context) {
	var body struct {
		ContactName  string    `json:"contactName" binding:"required"`
		ContactPhone string    `json:"contactPhone" binding:"required"`
		ContactEmail string    `json:"contactEmail"`
		EventType    string    `json:"eventType"`
		EventDate    time.Time `json:"eventDate" binding:"required"`
		PartySize    int       `json:"partySize" binding:"required,gt=0"`
		Notes        string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !body.EventDate.After(rc.now()) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("eventDate must be in the future"))
		return
	}

	r := models.Reservation{
		ContactName:  strings.TrimSpace(body.ContactName),
		ContactPhone: strings.TrimSpace(body.ContactPhone),
		ContactEmail: body.ContactEmail,
		EventType:    body.EventType,
		EventDate:    body.EventDate,
		PartySize:    body.PartySize,
		Notes:        body.Notes,
		Status:       "pending",
	}
	if err := rc.DB.WithContext(c.Request.Context()).Create(&r).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("Reservation %d requested for %s (%d guests)", r.ID, r.EventDate.Format("2006-01-02"), r.PartySize)
	utils.RespondJSON(c, http.StatusCreated, "Reservation received", r)
}

// GetAllReservations -> ?status= and ?upcoming=true
func (rc *ReservationController) GetAllReservations(c *gin.Context) {
	q := rc.DB.WithContext(c.Request.Context()).Order("event_date")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if c.Query("upcoming") == "true" {
		q = q.Where("event_date >= ?", rc.now())
	}

	var reservations []models.Reservation
	if err := q.Find(&reservations).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All reservations", reservations)
}

// UpdateReservation -> staff confirms, cancels or completes a booking
func (rc *ReservationController) UpdateReservation(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("reservation_id"), 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid reservation id"))
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !reservationStatuses[body.Status] {
		utils.RespondError(c, http.StatusBadRequest, errors.New("status must be pending, confirmed, cancelled or completed"))
		return
	}

	var r models.Reservation
	if err := rc.DB.WithContext(c.Request.Context()).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, errors.New("Reservation not found"))
			return
		}
		respondServiceError(c, err)
		return
	}

	actor := middlewares.CurrentPrincipal(c).ActorID
	r.Status = body.Status
	r.HandledBy = &actor
	if body.Notes != "" {
		r.Notes = body.Notes
	}
	if err := rc.DB.WithContext(c.Request.Context()).Save(&r).Error; err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Reservation updated", r)
}
