package controllers

import (
	"context"
	"net/http"

	"github.com/velmora/unicart/api/responses"
	pkgerrors "github.com/velmora/unicart/pkg/errors"
	"github.com/velmora/unicart/pkg/logger"
)

// Pinger is the readiness probe surface of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	logg   *logger.Logger
	checks map[string]Pinger
}

func NewHealthController(logg *logger.Logger, checks map[string]Pinger) *HealthController {
	return &HealthController{logg: logg, checks: checks}
}

func (h *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

func (h *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses := map[string]string{}
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check.Ping(ctx); err != nil {
			statuses[name] = err.Error()
			responses.WriteError(ctx, h.logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready").WithDetails(statuses))
			return
		}
		statuses[name] = "ok"
	}

	responses.WriteSuccess(w, statuses)
}
