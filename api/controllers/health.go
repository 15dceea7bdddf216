package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/lamnguyen/vestika-backend/api/responses"
	"github.com/lamnguyen/vestika-backend/pkg/config"
	"github.com/lamnguyen/vestika-backend/pkg/db"
	"github.com/lamnguyen/vestika-backend/pkg/logger"
	"github.com/lamnguyen/vestika-backend/pkg/redis"
	"github.com/lamnguyen/vestika-backend/pkg/storage/gcs"
)

const readyCheckTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Vestika-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each wired dependency. Optional dependencies that are not
// configured report "skipped" rather than failing readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisClient *redis.Client, gcsClient gcs.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Vestika-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		check := func(name string, ping func(context.Context) error) {
			if err := ping(ctx); err != nil {
				checks[name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.check.failed", err)
				}
				return
			}
			checks[name] = "up"
		}

		if dbP != nil {
			check("db", dbP.Ping)
		} else {
			checks["db"] = "skipped"
		}
		if redisClient != nil {
			check("redis", redisClient.Ping)
		} else {
			checks["redis"] = "skipped"
		}
		if gcsClient != nil {
			check("gcs", gcsClient.Ping)
		} else {
			checks["gcs"] = "skipped"
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
