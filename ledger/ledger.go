// Package ledger is the ticketing core: it tracks per-event capacity, issues
// tickets and validates scanned credentials at the door. All invariants
// (capacity, one ticket per customer per event, single admission) are
// enforced inside one database transaction per operation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Prabhav200511/QuickQRTicket/lib/logger/sl"
	"github.com/Prabhav200511/QuickQRTicket/models"
	"github.com/Prabhav200511/QuickQRTicket/utils"
)

// EntryBuffer is how long before an event's start time check-in opens.
const EntryBuffer = 30 * time.Minute

type Ledger struct {
	db  *gorm.DB
	log *slog.Logger
	now func() time.Time
}

func New(db *gorm.DB, log *slog.Logger) *Ledger {
	return &Ledger{
		db:  db,
		log: log,
		now: time.Now,
	}
}

// ActiveEvent is an event annotated with the derived number of unsold seats.
type ActiveEvent struct {
	ID               uint            `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Time             time.Time       `json:"time"`
	EndTime          time.Time       `json:"end_time"`
	Capacity         int             `json:"capacity"`
	Price            decimal.Decimal `json:"price"`
	HostID           uint            `json:"host_id"`
	AvailableTickets int64           `json:"availabletickets"`
}

// CustomerTicket is a ticket joined with the event it admits to, as listed on
// a customer's "my tickets" page.
type CustomerTicket struct {
	TicketID     uint      `json:"ticket_id"`
	QRCode       string    `json:"qr_code"`
	Admitted     bool      `json:"admitted"`
	EventName    string    `json:"event_name"`
	EventTime    time.Time `json:"event_time"`
	EventEndTime time.Time `json:"event_end_time"`
}

// Admission is the confirmation returned by a successful scan.
type Admission struct {
	TicketID   uint      `json:"ticket_id"`
	EventName  string    `json:"event_name"`
	EventStart time.Time `json:"event_start"`
	EnteredAt  time.Time `json:"entry_time"`
}

// PurgeExpired deletes every event whose end time has passed, tickets first
// so the event rows never dangle. Idempotent: a second call with no new
// events is a no-op.
func (l *Ledger) PurgeExpired(ctx context.Context) error {
	const op = "ledger.PurgeExpired"
	now := l.now()

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("event_id IN (?)", tx.Model(&models.Event{}).Select("id").Where("end_time < ?", now)).
			Delete(&models.Ticket{}).Error; err != nil {
			return err
		}
		return tx.Where("end_time < ?", now).Delete(&models.Event{}).Error
	})
	if err != nil {
		l.log.Error("failed to purge expired events", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListActiveEvents purges expired events, then returns the rest ordered by
// start time with their remaining availability.
func (l *Ledger) ListActiveEvents(ctx context.Context) ([]ActiveEvent, error) {
	const op = "ledger.ListActiveEvents"

	if err := l.PurgeExpired(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var events []ActiveEvent
	err := l.db.WithContext(ctx).
		Model(&models.Event{}).
		Select("events.id, events.name, events.description, events.time, events.end_time, events.capacity, events.price, events.host_id, events.capacity - COUNT(tickets.id) AS available_tickets").
		Joins("LEFT JOIN tickets ON tickets.event_id = events.id").
		Group("events.id").
		Order("events.time ASC").
		Scan(&events).Error
	if err != nil {
		l.log.Error("failed to list events", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return events, nil
}

// ListHostEvents returns the events a host created, soonest first. No purge.
func (l *Ledger) ListHostEvents(ctx context.Context, hostID uint) ([]models.Event, error) {
	const op = "ledger.ListHostEvents"

	var events []models.Event
	err := l.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("time ASC").
		Find(&events).Error
	if err != nil {
		l.log.Error("failed to list host events", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return events, nil
}

// ListCustomerTickets returns a customer's tickets for events that have not
// started yet, soonest first.
func (l *Ledger) ListCustomerTickets(ctx context.Context, customerID uint) ([]CustomerTicket, error) {
	const op = "ledger.ListCustomerTickets"

	var tickets []CustomerTicket
	err := l.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Select("tickets.id AS ticket_id, tickets.qr_code, tickets.admitted, events.name AS event_name, events.time AS event_time, events.end_time AS event_end_time").
		Joins("JOIN events ON events.id = tickets.event_id").
		Where("tickets.customer_id = ? AND events.time > ?", customerID, l.now()).
		Order("events.time ASC").
		Scan(&tickets).Error
	if err != nil {
		l.log.Error("failed to list customer tickets", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tickets, nil
}

// Purchase issues a ticket for (eventID, customerID). The event row is
// locked for the whole transaction, so the capacity and duplicate checks are
// serialized per event: the capacity can never be exceeded and the pair can
// never book twice, no matter how many purchases race.
func (l *Ledger) Purchase(ctx context.Context, eventID, customerID uint) (*models.Ticket, error) {
	const op = "ledger.Purchase"
	log := l.log.With("op", op, "event_id", eventID, "customer_id", customerID)

	var ticket models.Ticket
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := lockForUpdate(tx).First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return err
		}

		now := l.now()
		if !event.Time.After(now) {
			return ErrEventStarted
		}

		var sold int64
		if err := tx.Model(&models.Ticket{}).Where("event_id = ?", event.ID).Count(&sold).Error; err != nil {
			return err
		}
		if sold >= int64(event.Capacity) {
			return ErrEventFull
		}

		var existing int64
		if err := tx.Model(&models.Ticket{}).
			Where("event_id = ? AND customer_id = ?", event.ID, customerID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyBooked
		}

		cred, err := MintCredential(event.ID, customerID, now)
		if err != nil {
			return err
		}
		qrCode, err := utils.QRDataURL(cred.String())
		if err != nil {
			return err
		}

		ticket = models.Ticket{
			EventID:    event.ID,
			CustomerID: customerID,
			QRData:     cred.String(),
			QRCode:     qrCode,
		}
		return tx.Create(&ticket).Error
	})
	if err != nil {
		if isLedgerErr(err) {
			log.Warn("purchase rejected", sl.Err(err))
		} else {
			log.Error("purchase failed", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("ticket issued", "ticket_id", ticket.ID)
	return &ticket, nil
}

// Admit validates a scanned credential and flips the ticket to admitted.
// Every failing branch rolls back except the expired one, which commits the
// admitted flag so a dead credential can never be replayed.
func (l *Ledger) Admit(ctx context.Context, rawCredential string, hostID uint) (*Admission, error) {
	const op = "ledger.Admit"
	log := l.log.With("op", op, "host_id", hostID)

	cred, err := ParseCredential(rawCredential)
	if err != nil {
		log.Warn("malformed credential")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		admission *Admission
		expired   bool
	)
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.Preload("Event").
			Where("event_id = ? AND customer_id = ?", cred.EventID, cred.CustomerID).
			First(&ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}

		if ticket.Event.HostID != hostID {
			return ErrNotEventHost
		}

		if ticket.Admitted {
			return ErrAlreadyAdmitted
		}

		now := l.now()
		if now.After(ticket.Event.EndTime) {
			// Close the credential for good even though entry is refused.
			if err := tx.Model(&models.Ticket{}).Where("id = ?", ticket.ID).
				Update("admitted", true).Error; err != nil {
				return err
			}
			expired = true
			return nil // commit the forced flip
		}

		entryOpens := ticket.Event.Time.Add(-EntryBuffer)
		if now.Before(entryOpens) {
			return &TooEarlyError{
				EventStart:  ticket.Event.Time,
				WaitMinutes: int(math.Ceil(entryOpens.Sub(now).Minutes())),
			}
		}

		// Second guard against two scans racing past the read above; only
		// one conditional update can win.
		res := tx.Model(&models.Ticket{}).
			Where("id = ? AND admitted = ?", ticket.ID, false).
			Update("admitted", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAdmitted
		}

		admission = &Admission{
			TicketID:   ticket.ID,
			EventName:  ticket.Event.Name,
			EventStart: ticket.Event.Time,
			EnteredAt:  now,
		}
		return nil
	})
	if err != nil {
		var tooEarly *TooEarlyError
		if isLedgerErr(err) || errors.As(err, &tooEarly) {
			log.Warn("scan rejected", sl.Err(err))
		} else {
			log.Error("scan failed", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if expired {
		log.Warn("expired credential closed", "event_id", cred.EventID, "customer_id", cred.CustomerID)
		return nil, fmt.Errorf("%s: %w", op, ErrTicketExpired)
	}

	log.Info("ticket admitted", "ticket_id", admission.TicketID, "event", admission.EventName)
	return admission, nil
}

// lockForUpdate takes the per-row lock that serializes purchases for one
// event. SQLite has no FOR UPDATE grammar; its single-writer lock already
// serializes the transaction.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func isLedgerErr(err error) bool {
	for _, known := range []error{
		ErrEventNotFound, ErrEventStarted, ErrEventFull, ErrAlreadyBooked,
		ErrMalformedCredential, ErrTicketNotFound, ErrNotEventHost,
		ErrAlreadyAdmitted, ErrTicketExpired,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
