package handler

import (
	"context"
	"net/http"
	"time"

	deltabot "github.com/phbpx/delta-agent"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

const healthTimeout = time.Second

type HealthHandler struct {
	service  string
	provider string
	leads    deltabot.LeadService
	log      *otelzap.SugaredLogger
	now      func() time.Time
}

// NewHealthHandler reports on the lead store and the model provider. An
// empty provider means no credential is configured.
func NewHealthHandler(service, provider string, leads deltabot.LeadService, log *otelzap.SugaredLogger) *HealthHandler {
	return &HealthHandler{
		service:  service,
		provider: provider,
		leads:    leads,
		log:      log,
		now:      time.Now,
	}
}

func (hh HealthHandler) Root(rw http.ResponseWriter, r *http.Request) {
	respond(r.Context(), rw, http.StatusOK, map[string]string{
		"status":  "online",
		"service": hh.service,
	})
}

func (hh HealthHandler) Health(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := "healthy"
	database := "connected"

	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	if err := hh.leads.StatusCheck(checkCtx); err != nil {
		hh.log.Ctx(ctx).Warnw("Health", "error", err.Error())
		status = "degraded"
		database = "unavailable"
	}

	llm := "configured"
	if hh.provider == "" {
		status = "degraded"
		llm = "missing"
	}

	respond(ctx, rw, http.StatusOK, map[string]interface{}{
		"status":    status,
		"timestamp": hh.now().UTC().Format(time.RFC3339),
		"provider":  hh.provider,
		"services": map[string]string{
			"database": database,
			"llm":      llm,
		},
	})
}
