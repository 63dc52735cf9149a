package reservation

import (
	"errors"
	"time"
)

type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	Cancelled Status = "cancelled"
)

type Reservation struct {
	ID         string    `json:"id" db:"reservation_id"`
	Reference  string    `json:"reference" db:"reference"`
	UserID     string    `json:"userId" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	Phone      string    `json:"phone" db:"phone"`
	Guests     int       `json:"guests" db:"guests"`
	ReservedAt time.Time `json:"reservedAt" db:"reserved_at"`
	Note       string    `json:"note" db:"note"`
	Status     Status    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

type ReservationNew struct {
	Name       string    `json:"name" validate:"required,max=100"`
	Phone      string    `json:"phone" validate:"required,phone"`
	Guests     int       `json:"guests" validate:"required,min=1,max=20"`
	ReservedAt time.Time `json:"reservedAt" validate:"required"`
	Note       string    `json:"note" validate:"max=500"`
}

type StatusUp struct {
	Status Status `json:"status" validate:"required,oneof=pending confirmed cancelled"`
}

// bookingWindow bounds how far ahead a table can be booked.
const bookingWindow = 90 * 24 * time.Hour

var (
	errPast   = errors.New("reservedAt must be in the future")
	errTooFar = errors.New("reservations open at most 90 days ahead")
)

func checkTime(at, now time.Time) error {
	if !at.After(now) {
		return errPast
	}
	if at.Sub(now) > bookingWindow {
		return errTooFar
	}
	return nil
}
