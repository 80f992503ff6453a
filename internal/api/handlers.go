// Package api exposes the HTTP surface that turns S3 report notifications
// into pipeline runs. It is the triggering collaborator: it owns the
// before-run idempotency check and the per-report mutual exclusion the
// pipeline itself deliberately does not do.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/HussainShah1551/gp-codebuild/internal/pipeline"
	"github.com/HussainShah1551/gp-codebuild/internal/pkg/distlock"
	"github.com/HussainShah1551/gp-codebuild/internal/pkg/httputil"
	"github.com/HussainShah1551/gp-codebuild/internal/pkg/logger"
	"github.com/HussainShah1551/gp-codebuild/internal/runlog"
	"github.com/HussainShah1551/gp-codebuild/internal/store"
)

// lockTTL bounds how long a report stays locked if the handler dies mid-run.
const lockTTL = 15 * time.Minute

// Runner executes one pipeline invocation.
type Runner interface {
	Run(ctx context.Context, bucket, key string) pipeline.Result
}

// Handlers holds the hook endpoints' dependencies. Redis, db and runLog are
// all optional; with none of them the hook still works, it just cannot
// exclude concurrent duplicate deliveries.
type Handlers struct {
	runner Runner
	store  store.ObjectStore
	redis  *redis.Client
	db     *sql.DB
	runLog *runlog.RunLog
}

// NewHandlers wires the hook endpoints.
func NewHandlers(runner Runner, st store.ObjectStore, redisClient *redis.Client, db *sql.DB, rl *runlog.RunLog) *Handlers {
	return &Handlers{runner: runner, store: st, redis: redisClient, db: db, runLog: rl}
}

// Router builds the chi router for the hook server.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Get("/healthz", h.Healthz)
	r.Post("/hooks/report", h.ReportHook)
	return r
}

// Healthz reports liveness.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// snsEnvelope is the SNS notification wrapper carrying an S3 event as a
// JSON string payload.
type snsEnvelope struct {
	Records []struct {
		Sns struct {
			Message string `json:"Message"`
		} `json:"Sns"`
	} `json:"Records"`
	// Direct SNS HTTP delivery puts the payload at the top level.
	Message string `json:"Message"`
}

// s3Event is the S3 notification shape, either unwrapped or inside SNS.
type s3Event struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ReportHook accepts an S3 event (bare, or wrapped in an SNS envelope) and
// triggers one pipeline run for the referenced report.
func (h *Handlers) ReportHook(w http.ResponseWriter, r *http.Request) {
	body, err := decodeEvent(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	bucket, key := body.bucket, body.key

	ctx := r.Context()

	// Already-processed reports are skipped outright; the marker is the
	// contract with past runs (including pre-migration Lambda runs).
	done, err := h.store.MarkerExists(ctx, bucket, key)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if done {
		logger.Info("report already processed, skipping", "bucket", bucket, "key", key)
		httputil.Conflict(w, "report already processed")
		return
	}

	if h.redis != nil || h.db != nil {
		lock := distlock.NewLock(h.redis, h.db, bucket+"/"+key, lockTTL)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		if !ok {
			httputil.Conflict(w, "report is being processed")
			return
		}
		defer lock.Release(ctx)
	}

	started := time.Now()
	res := h.runner.Run(ctx, bucket, key)
	h.runLog.Record(ctx, res, started)

	if res.Status == pipeline.StatusFailed {
		httputil.JSON(w, http.StatusInternalServerError, res)
		return
	}
	httputil.Accepted(w, res)
}

type eventRef struct {
	bucket string
	key    string
}

// decodeEvent extracts the bucket/key pair from the request payload.
func decodeEvent(r *http.Request) (eventRef, error) {
	var env snsEnvelope
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return eventRef{}, errBadPayload
	}

	payload := []byte(raw)
	if err := json.Unmarshal(raw, &env); err == nil {
		if len(env.Records) > 0 && env.Records[0].Sns.Message != "" {
			payload = []byte(env.Records[0].Sns.Message)
		} else if env.Message != "" {
			payload = []byte(env.Message)
		}
	}

	var evt s3Event
	if err := json.Unmarshal(payload, &evt); err != nil || len(evt.Records) == 0 {
		return eventRef{}, errBadPayload
	}

	rec := evt.Records[0].S3
	if rec.Bucket.Name == "" || rec.Object.Key == "" {
		return eventRef{}, errBadPayload
	}

	// S3 event keys are URL-encoded with '+' for spaces.
	key := strings.ReplaceAll(rec.Object.Key, "+", " ")
	if decoded, err := url.QueryUnescape(key); err == nil {
		key = decoded
	}

	return eventRef{bucket: rec.Bucket.Name, key: key}, nil
}

var errBadPayload = &payloadError{"payload is not an S3 event or SNS-wrapped S3 event"}

type payloadError struct{ msg string }

func (e *payloadError) Error() string { return e.msg }
