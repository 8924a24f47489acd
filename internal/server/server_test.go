package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/annealloc/internal/config"
	"github.com/copyleftdev/annealloc/internal/logging"
	"github.com/copyleftdev/annealloc/internal/metrics"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Search.NumPatterns = 50
	cfg.Search.MaxWorkers = 2
	cfg.Search.LocalSearchIterations = 50
	cfg.Search.InitialTemperature = 1.0
	cfg.Search.CoolingRate = 0.995
	cfg.Search.SnapshotInterval = 10
	return cfg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger := logging.New(logging.FatalLevel, io.Discard)
	srv := NewServer(testConfig(), logger, metrics.New(), nil)

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.Close() })
	return srv, ts
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"seminars": []map[string]interface{}{
			{"id": "a", "min_size": 1, "max_size": 3},
			{"id": "b", "min_size": 1, "max_size": 3},
			{"id": "c", "min_size": 1, "max_size": 3},
		},
		"students": []map[string]interface{}{
			{"id": 1, "preferences": []string{"a", "b"}},
			{"id": 2, "preferences": []string{"b"}},
			{"id": 3, "preferences": []string{"c", "a"}},
			{"id": 4},
		},
	}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func createJob(t *testing.T, ts *httptest.Server, payload map[string]interface{}) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/api/v1/assignments", payload)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created map[string]string
	decodeJSON(t, resp, &created)
	require.NotEmpty(t, created["id"])
	require.Equal(t, StatusPending, created["status"])
	return created["id"]
}

func getStatus(t *testing.T, ts *httptest.Server, id string) jobStatus {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/assignments/%s", ts.URL, id))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status jobStatus
	decodeJSON(t, resp, &status)
	return status
}

func waitForStatus(t *testing.T, ts *httptest.Server, id, want string) jobStatus {
	t.Helper()
	var status jobStatus
	require.Eventually(t, func() bool {
		status = getStatus(t, ts, id)
		return status.Status == want
	}, 10*time.Second, 20*time.Millisecond)
	return status
}

func TestJobLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	id := createJob(t, ts, validPayload())
	status := waitForStatus(t, ts, id, StatusCompleted)

	require.NotNil(t, status.BestScore)
	assert.Greater(t, *status.BestScore, 0.0)
	assert.Len(t, status.Assignment, 4)
	assert.NotEmpty(t, status.History)
	require.NotNil(t, status.Summary)
	assert.Equal(t, 4, status.Summary.Students)
	require.NotNil(t, status.Diagnostics)
	assert.False(t, status.Diagnostics.Infeasible)
	assert.NotEmpty(t, status.EndTime)
}

func TestCreateRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/assignments", map[string]interface{}{
		"seminars": []map[string]interface{}{
			{"id": "a", "min_size": 5, "max_size": 2},
		},
		"students": []map[string]interface{}{{"id": 1}},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(ts.URL+"/api/v1/assignments", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateAppliesConfigOverrides(t *testing.T) {
	_, ts := newTestServer(t)

	payload := validPayload()
	payload["config"] = map[string]interface{}{
		"num_patterns": 3,
		"max_workers":  1,
		"seed":         42,
	}
	id := createJob(t, ts, payload)
	status := waitForStatus(t, ts, id, StatusCompleted)
	assert.Equal(t, 3, status.Trials)
}

func TestGetUnknownJob(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/assignments/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListJobs(t *testing.T) {
	_, ts := newTestServer(t)

	id1 := createJob(t, ts, validPayload())
	id2 := createJob(t, ts, validPayload())
	waitForStatus(t, ts, id1, StatusCompleted)
	waitForStatus(t, ts, id2, StatusCompleted)

	resp, err := http.Get(ts.URL + "/api/v1/assignments")
	require.NoError(t, err)
	var statuses []jobStatus
	decodeJSON(t, resp, &statuses)
	assert.Len(t, statuses, 2)
}

func TestBreakdownCSV(t *testing.T) {
	_, ts := newTestServer(t)

	id := createJob(t, ts, validPayload())
	waitForStatus(t, ts, id, StatusCompleted)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/assignments/%s/breakdown", ts.URL, id))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "student_id,seminar_id,rank,boosted,score")
}

func TestCancelJob(t *testing.T) {
	_, ts := newTestServer(t)

	payload := validPayload()
	payload["config"] = map[string]interface{}{
		"num_patterns":            2000000,
		"local_search_iterations": 500,
		"snapshot_interval":       100,
	}
	id := createJob(t, ts, payload)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/assignments/%s", ts.URL, id), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status := waitForStatus(t, ts, id, StatusCancelled)
	require.NotNil(t, status.Diagnostics)
	assert.True(t, status.Diagnostics.Cancelled)

	// A second cancel hits a terminal job.
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelUnknownJob(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/assignments/nope", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
