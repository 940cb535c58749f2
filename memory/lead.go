// Package memory provides a mock LeadService that logs records and keeps
// nothing between calls.
package memory

import (
	"context"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

type LeadService struct {
	log *otelzap.SugaredLogger
}

func NewLeadService(log *otelzap.SugaredLogger) deltabot.LeadService {
	return &LeadService{
		log: log,
	}
}

func (ls LeadService) Create(ctx context.Context, lead deltabot.Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ls.log.Ctx(ctx).Infow("DB SAVE",
		"id", lead.ID,
		"name", lead.Name,
		"email", lead.Email,
		"details", lead.Details,
	)
	return nil
}

func (ls LeadService) Book(ctx context.Context, booking deltabot.Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ls.log.Ctx(ctx).Infow("DB BOOK",
		"id", booking.ID,
		"name", booking.Name,
		"time", booking.SelectedTime,
		"intent", booking.Intent,
	)
	return nil
}

func (ls LeadService) StatusCheck(ctx context.Context) error {
	return ctx.Err()
}
