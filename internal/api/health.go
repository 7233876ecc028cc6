// Copyright (c) 2026 Credo. All rights reserved.
// Author: mahir.labib.dev@gmail.com

package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mahirlabib/credo/internal/platform/constants"
	"github.com/mahirlabib/credo/internal/platform/postgres"
	"github.com/mahirlabib/credo/internal/platform/redis"
	"github.com/mahirlabib/credo/internal/platform/respond"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	Pool  *pgxpool.Pool
	Redis *goredis.Client // nil when Redis is not configured
}

// Liveness reports that the process is up. It touches no dependencies.
func (handler *HealthHandler) Liveness(writer http.ResponseWriter, request *http.Request) {
	respond.JSON(writer, http.StatusOK, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

// Readiness checks the backing stores and returns 503 when any is down.
func (handler *HealthHandler) Readiness(writer http.ResponseWriter, request *http.Request) {
	checks := map[string]string{}
	healthy := true

	if err := postgres.Ping(request.Context(), handler.Pool); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if handler.Redis != nil {
		if err := redis.Ping(request.Context(), handler.Redis); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	statusText := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "degraded"
	}

	respond.JSON(writer, status, map[string]interface{}{
		constants.FieldStatus: statusText,
		constants.FieldChecks: checks,
	})
}
