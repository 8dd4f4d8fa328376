package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Prabhav200511/QuickQRTicket/ledger"
	"github.com/Prabhav200511/QuickQRTicket/utils"
)

type TicketController struct {
	Ledger *ledger.Ledger
}

// BuyTicket issues a ticket for the calling customer
func (t *TicketController) BuyTicket(c *gin.Context) {
	var input struct {
		EventID uint `json:"eventId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.EventID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Event id is required."})
		return
	}

	ticket, err := t.Ledger.Purchase(c.Request.Context(), input.EventID, c.GetUint("user_id"))
	if err != nil {
		status, message := purchaseFailure(err)
		c.JSON(status, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Ticket purchased", "ticket": ticket})
}

// MyTickets lists the calling customer's tickets for upcoming events
func (t *TicketController) MyTickets(c *gin.Context) {
	tickets, err := t.Ledger.ListCustomerTickets(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch tickets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// ScanQRString validates a credential supplied as raw text (live camera feed)
func (t *TicketController) ScanQRString(c *gin.Context) {
	var input struct {
		QRText string `json:"qrText"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.QRText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "QR text required."})
		return
	}

	t.admit(c, input.QRText)
}

// ScanImage validates a credential supplied as an uploaded QR image
func (t *TicketController) ScanImage(c *gin.Context) {
	file, err := c.FormFile("qrimage")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "QR image required."})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Failed to read QR image."})
		return
	}
	defer f.Close()

	qrText, err := utils.DecodeQRImage(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not decode a QR code from the image."})
		return
	}

	t.admit(c, qrText)
}

// admit is the single admission path both scan endpoints funnel into.
func (t *TicketController) admit(c *gin.Context, qrText string) {
	admission, err := t.Ledger.Admit(c.Request.Context(), qrText, c.GetUint("user_id"))
	if err != nil {
		var tooEarly *ledger.TooEarlyError
		if errors.As(err, &tooEarly) {
			c.JSON(http.StatusBadRequest, gin.H{
				"message":             "Event has not started yet. Entry opens 30 minutes before start time.",
				"minutes_until_entry": tooEarly.WaitMinutes,
				"event_start":         tooEarly.EventStart,
			})
			return
		}
		status, message := admissionFailure(err)
		c.JSON(status, gin.H{"message": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Entry validated—welcome!",
		"event_name":  admission.EventName,
		"ticket_id":   admission.TicketID,
		"entry_time":  admission.EnteredAt,
		"event_start": admission.EventStart,
	})
}

func purchaseFailure(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrEventNotFound):
		return http.StatusNotFound, "Event not found"
	case errors.Is(err, ledger.ErrEventStarted):
		return http.StatusBadRequest, "Event already started"
	case errors.Is(err, ledger.ErrEventFull):
		return http.StatusBadRequest, "Event is full"
	case errors.Is(err, ledger.ErrAlreadyBooked):
		return http.StatusBadRequest, "Ticket already booked"
	default:
		return http.StatusInternalServerError, "Failed to purchase ticket"
	}
}

func admissionFailure(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrMalformedCredential):
		return http.StatusBadRequest, "QR format invalid."
	case errors.Is(err, ledger.ErrTicketNotFound):
		return http.StatusNotFound, "Ticket not found."
	case errors.Is(err, ledger.ErrNotEventHost):
		return http.StatusForbidden, "You are not authorized to scan tickets for this event."
	case errors.Is(err, ledger.ErrAlreadyAdmitted):
		return http.StatusBadRequest, "Ticket already used."
	case errors.Is(err, ledger.ErrTicketExpired):
		return http.StatusBadRequest, "Ticket has expired."
	default:
		return http.StatusInternalServerError, "Failed to process QR text"
	}
}
