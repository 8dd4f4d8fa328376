package models

import (
	"time"
)

// Ticket is one admission credential for one customer at one event. The
// (event_id, customer_id) pair is unique: a customer holds at most one ticket
// per event.
type Ticket struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EventID    uint   `gorm:"not null;uniqueIndex:idx_tickets_event_customer" json:"event_id"`
	CustomerID uint   `gorm:"not null;uniqueIndex:idx_tickets_event_customer" json:"customer_id"`
	QRData     string `gorm:"type:text;not null" json:"qr_data"` // raw credential payload
	QRCode     string `gorm:"type:text;not null" json:"qr_code"` // rendered PNG data URL
	Admitted   bool   `gorm:"not null;default:false" json:"admitted"`

	Event    Event `gorm:"foreignKey:EventID" json:"-"`
	Customer User  `gorm:"foreignKey:CustomerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
