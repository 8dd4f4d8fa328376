package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Time        time.Time       `gorm:"type:timestamptz;not null" json:"time"` // start time
	EndTime     time.Time       `gorm:"type:timestamptz;not null" json:"end_time"`
	Capacity    int             `gorm:"not null" json:"capacity"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	HostID      uint            `gorm:"not null;index" json:"host_id"` // ID of the user who created the event

	Host User `gorm:"foreignKey:HostID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
