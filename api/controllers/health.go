package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/skyserve/skyserve-backend/api/responses"
	"github.com/skyserve/skyserve-backend/pkg/config"
	"github.com/skyserve/skyserve-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SkyServe-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when both durable stores answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-SkyServe-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"db": "ok", "redis": "ok"}
		healthy := true

		if db == nil {
			checks["db"] = "unavailable"
			healthy = false
		} else if err := db.Ping(ctx); err != nil {
			checks["db"] = "unreachable"
			healthy = false
			if logg != nil {
				logg.Error(ctx, "readiness db ping failed", err)
			}
		}

		if cache == nil {
			checks["redis"] = "unavailable"
			healthy = false
		} else if err := cache.Ping(ctx); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
			if logg != nil {
				logg.Error(ctx, "readiness redis ping failed", err)
			}
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{"status": state, "checks": checks})
	}
}
