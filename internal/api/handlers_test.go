package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HussainShah1551/gp-codebuild/internal/pipeline"
)

// =============================================================================
// TEST FAKES
// =============================================================================

type fakeRunner struct {
	result pipeline.Result
	calls  []string
}

func (r *fakeRunner) Run(ctx context.Context, bucket, key string) pipeline.Result {
	r.calls = append(r.calls, bucket+"/"+key)
	res := r.result
	res.Bucket, res.Key = bucket, key
	return res
}

type fakeStore struct {
	markers   map[string]bool
	markerErr error
}

func (s *fakeStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	return nil, errors.New("not used")
}

func (s *fakeStore) WriteMarker(ctx context.Context, bucket, key string) error {
	return nil
}

func (s *fakeStore) MarkerExists(ctx context.Context, bucket, key string) (bool, error) {
	if s.markerErr != nil {
		return false, s.markerErr
	}
	return s.markers[bucket+"/"+key], nil
}

func s3EventBody(bucket, key string) string {
	return fmt.Sprintf(`{"Records":[{"s3":{"bucket":{"name":%q},"object":{"key":%q}}}]}`, bucket, key)
}

func postHook(h *Handlers, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hooks/report", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, req)
	return rr
}

// =============================================================================
// HOOK TESTS
// =============================================================================

func TestReportHook_TriggersRun(t *testing.T) {
	runner := &fakeRunner{result: pipeline.Result{Status: pipeline.StatusSucceeded}}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, nil, nil, nil)

	rr := postHook(h, s3EventBody("reports", "may.csv"))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "reports/may.csv", runner.calls[0])
}

func TestReportHook_SNSWrappedEvent(t *testing.T) {
	runner := &fakeRunner{result: pipeline.Result{Status: pipeline.StatusSucceeded}}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, nil, nil, nil)

	inner := s3EventBody("reports", "june.csv")
	body := fmt.Sprintf(`{"Records":[{"Sns":{"Message":%q}}]}`, inner)
	rr := postHook(h, body)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "reports/june.csv", runner.calls[0])
}

func TestReportHook_DecodesURLEncodedKey(t *testing.T) {
	runner := &fakeRunner{result: pipeline.Result{Status: pipeline.StatusSucceeded}}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, nil, nil, nil)

	rr := postHook(h, s3EventBody("reports", "Corporate+Employees+%282024%29.csv"))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "reports/Corporate Employees (2024).csv", runner.calls[0])
}

func TestReportHook_BadPayload(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, nil, nil, nil)

	for _, body := range []string{
		"not json",
		`{"Records":[]}`,
		`{"hello":"world"}`,
		`{"Records":[{"s3":{"bucket":{"name":""},"object":{"key":"k"}}}]}`,
	} {
		rr := postHook(h, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "body=%q", body)
	}
	assert.Empty(t, runner.calls, "bad payloads must never trigger a run")
}

func TestReportHook_MarkerShortCircuits(t *testing.T) {
	runner := &fakeRunner{}
	st := &fakeStore{markers: map[string]bool{"reports/may.csv": true}}
	h := NewHandlers(runner, st, nil, nil, nil)

	rr := postHook(h, s3EventBody("reports", "may.csv"))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, runner.calls)
}

func TestReportHook_MarkerCheckFailure(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHandlers(runner, &fakeStore{markerErr: errors.New("s3 down")}, nil, nil, nil)

	rr := postHook(h, s3EventBody("reports", "may.csv"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, runner.calls)
}

func TestReportHook_FailedRunReturns500(t *testing.T) {
	runner := &fakeRunner{result: pipeline.Result{Status: pipeline.StatusFailed, Error: "fetch failed"}}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, nil, nil, nil)

	rr := postHook(h, s3EventBody("reports", "may.csv"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "fetch failed")
}

func TestReportHook_DegradedRunStillAccepted(t *testing.T) {
	runner := &fakeRunner{result: pipeline.Result{Status: pipeline.StatusDegraded, JobsFailed: 2}}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, nil, nil, nil)

	rr := postHook(h, s3EventBody("reports", "may.csv"))

	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestReportHook_LockedReportConflicts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// Simulate a concurrent delivery that already holds the lock.
	mr.Set("gp:lock:reports/may.csv", "other-owner")

	runner := &fakeRunner{result: pipeline.Result{Status: pipeline.StatusSucceeded}}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, client, nil, nil)

	rr := postHook(h, s3EventBody("reports", "may.csv"))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Empty(t, runner.calls)
}

func TestReportHook_LockReleasedAfterRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	runner := &fakeRunner{result: pipeline.Result{Status: pipeline.StatusSucceeded}}
	h := NewHandlers(runner, &fakeStore{markers: map[string]bool{}}, client, nil, nil)

	rr := postHook(h, s3EventBody("reports", "may.csv"))
	require.Equal(t, http.StatusAccepted, rr.Code)

	assert.False(t, mr.Exists("gp:lock:reports/may.csv"), "lock must be released after the run")
}

func TestHealthz(t *testing.T) {
	h := NewHandlers(&fakeRunner{}, &fakeStore{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}
