package deltabot

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDuplicatedLead    = errors.New("lead already saved")
	ErrDuplicatedBooking = errors.New("booking already saved")
	ErrInvalidArguments  = errors.New("invalid tool arguments")
	ErrEmptyConversation = errors.New("messages must not be empty")
)

const (
	DefaultLeadDetails   = "General Inquiry"
	DefaultBookingIntent = "Discovery Call"

	BookingConfirmed = "confirmed"
)

// Lead is a prospective customer captured during a conversation.
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// Booking is a scheduled discovery call.
type Booking struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	SelectedTime string    `json:"selected_time"`
	Intent       string    `json:"intent"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type LeadService interface {
	Create(ctx context.Context, newLead Lead) error
	Book(ctx context.Context, newBooking Booking) error
	StatusCheck(ctx context.Context) error
}
