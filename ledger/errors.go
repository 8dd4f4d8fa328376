package ledger

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Issuance failures.
	ErrEventNotFound = errors.New("event not found")
	ErrEventStarted  = errors.New("event already started")
	ErrEventFull     = errors.New("event is full")
	ErrAlreadyBooked = errors.New("ticket already booked")

	// Admission failures.
	ErrMalformedCredential = errors.New("qr format invalid")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrNotEventHost        = errors.New("not authorized to scan tickets for this event")
	ErrAlreadyAdmitted     = errors.New("ticket already used")
	ErrTicketExpired       = errors.New("ticket has expired")
)

// TooEarlyError is returned when a credential is scanned before the entry
// window opens. It carries how long the holder still has to wait.
type TooEarlyError struct {
	EventStart  time.Time
	WaitMinutes int
}

func (e *TooEarlyError) Error() string {
	return fmt.Sprintf("event has not started yet; entry opens in %d minutes", e.WaitMinutes)
}
