package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/tawandab/pawnshop-engine/pkg/response"
)

const serviceName = "pawnshop-engine"

type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func NewHealthHandler(db *sqlx.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
	}
}

type healthReport struct {
	Service   string            `json:"service"`
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health reports process liveness only; it must not touch dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, healthReport{
		Service:   serviceName,
		Status:    "up",
		Timestamp: time.Now(),
	})
}

// Ready verifies postgres and redis before the instance takes traffic. A
// failed dependency degrades the report and answers 503 with the failing
// check named, so readiness output says what is broken.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report := healthReport{
		Service:   serviceName,
		Status:    "up",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			return
		}
		report.Checks[name] = "up"
	}

	check("postgres", h.db.PingContext)
	check("redis", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() })

	if report.Status != "up" {
		response.JSON(w, http.StatusServiceUnavailable, report)
		return
	}
	response.Success(w, report)
}
