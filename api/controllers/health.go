package controllers

import (
	"net/http"

	"github.com/tradepost-io/tradepost-backend/api/responses"
	"github.com/tradepost-io/tradepost-backend/pkg/config"
	"github.com/tradepost-io/tradepost-backend/pkg/db"
	pkgerrors "github.com/tradepost-io/tradepost-backend/pkg/errors"
	"github.com/tradepost-io/tradepost-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tradepost-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness after checking the database connection.
func HealthReady(cfg *config.Config, dbP db.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tradepost-Env", cfg.App.Env)
		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
