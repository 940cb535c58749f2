package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	deltabot "github.com/phbpx/delta-agent"
)

// lib/pq errorCodeNames
// https://github.com/lib/pq/blob/master/error.go#L178
const uniqueViolation = "23505"

// statusTimeout bounds the ping loop in StatusCheck, which otherwise retries
// until the caller's context is done.
const statusTimeout = time.Second

type LeadService struct {
	db *sql.DB
}

func NewLeadService(db *sql.DB) deltabot.LeadService {
	return &LeadService{
		db: db,
	}
}

func (ls LeadService) Create(ctx context.Context, lead deltabot.Lead) error {
	query := `
	INSERT INTO leads (
		id, name, email, details, created_at
	) VALUES (
		$1, $2, $3, $4, $5
	)`

	return ls.insert(ctx, deltabot.ErrDuplicatedLead, query,
		lead.ID,
		lead.Name,
		lead.Email,
		lead.Details,
		lead.CreatedAt,
	)
}

func (ls LeadService) Book(ctx context.Context, booking deltabot.Booking) error {
	query := `
	INSERT INTO bookings (
		id, name, email, selected_time, intent, status, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7
	)`

	return ls.insert(ctx, deltabot.ErrDuplicatedBooking, query,
		booking.ID,
		booking.Name,
		booking.Email,
		booking.SelectedTime,
		booking.Intent,
		booking.Status,
		booking.CreatedAt,
	)
}

func (ls LeadService) StatusCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()
	return StatusCheck(ctx, ls.db)
}

// insert runs query in its own transaction. A unique violation is reported
// as duplicate.
func (ls LeadService) insert(ctx context.Context, duplicate error, query string, args ...interface{}) error {
	tx, err := ls.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return mapUniqueViolation(err, duplicate)
	}

	return tx.Commit()
}

func mapUniqueViolation(err, duplicate error) error {
	var pqerr *pq.Error
	if errors.As(err, &pqerr) && pqerr.Code == uniqueViolation {
		return duplicate
	}
	return err
}
