package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	deltabot "github.com/phbpx/delta-agent"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

var errLeadContact = errors.New("name and email are required")

// LeadHandler captures leads submitted directly, outside a chat.
type LeadHandler struct {
	service deltabot.LeadService
	log     *otelzap.SugaredLogger
}

func NewLeadHandler(service deltabot.LeadService, log *otelzap.SugaredLogger) *LeadHandler {
	return &LeadHandler{
		service: service,
		log:     log,
	}
}

func (lh LeadHandler) Create(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var lead deltabot.Lead

	if err := decode(r, &lead); err != nil {
		lh.log.Ctx(ctx).Errorw("Create", "error", err.Error())
		respondErr(ctx, rw, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(lead.Name) == "" || strings.TrimSpace(lead.Email) == "" {
		respondErr(ctx, rw, http.StatusBadRequest, errLeadContact)
		return
	}
	if lead.Details == "" {
		lead.Details = deltabot.DefaultLeadDetails
	}

	lead.ID = uuid.NewString()
	lead.CreatedAt = time.Now().UTC()

	if err := lh.service.Create(ctx, lead); err != nil {
		lh.log.Ctx(ctx).Errorw("Create", "error", err.Error())
		switch {
		case errors.Is(err, deltabot.ErrDuplicatedLead):
			respondErr(ctx, rw, http.StatusConflict, err)
		default:
			respondErr(ctx, rw, http.StatusInternalServerError, err)
		}
		return
	}

	respond(ctx, rw, http.StatusCreated, lead)
}
