package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Prabhav200511/QuickQRTicket/ledger"
	"github.com/Prabhav200511/QuickQRTicket/lib/logger/sl"
	"github.com/Prabhav200511/QuickQRTicket/models"
)

type EventController struct {
	DB     *gorm.DB
	Ledger *ledger.Ledger
	Log    *slog.Logger
}

// CreateEvent creates a new event owned by the calling host
func (e *EventController) CreateEvent(c *gin.Context) {
	var input struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Time        *time.Time      `json:"time"`
		EndTime     *time.Time      `json:"end_time"`
		Capacity    int             `json:"capacity"`
		Price       decimal.Decimal `json:"price"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid date format for start or end time."})
		return
	}

	if input.Time == nil || input.EndTime == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Both start time and end time are required."})
		return
	}
	if input.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Event name is required."})
		return
	}
	if input.Capacity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Capacity must be at least 1."})
		return
	}
	if input.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Price cannot be negative."})
		return
	}

	now := time.Now()
	if !input.EndTime.After(*input.Time) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "End time must be after start time."})
		return
	}
	if !input.Time.After(now) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Start time must be in the future."})
		return
	}

	event := models.Event{
		Name:        input.Name,
		Description: input.Description,
		Time:        *input.Time,
		EndTime:     *input.EndTime,
		Capacity:    input.Capacity,
		Price:       input.Price,
		HostID:      c.GetUint("user_id"),
	}
	if err := e.DB.Create(&event).Error; err != nil {
		e.Log.Error("event creation failed", sl.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// GetAllEvents lists every upcoming event with remaining availability.
// Expired events (and their tickets) are purged before listing.
func (e *EventController) GetAllEvents(c *gin.Context) {
	events, err := e.Ledger.ListActiveEvents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetHostEvents lists the events created by the calling host
func (e *EventController) GetHostEvents(c *gin.Context) {
	events, err := e.Ledger.ListHostEvents(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching your events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
