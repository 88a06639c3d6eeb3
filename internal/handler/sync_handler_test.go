package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pvz-sync/internal/models"
	"pvz-sync/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSync_Success(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{rows: []sheets.Row{
		{"PVZ ID": "A1", "Region": "North", "Organization": "Acme"},
		{"PVZ ID": "B2", "Region": "South"},
	}}
	_, engine, db := setupTestServer(t, reader)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/run", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Processed int `json:"processed"`
			Created   int `json:"created"`
			Updated   int `json:"updated"`
			Skipped   int `json:"skipped"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, 2, resp.Data.Processed)
	assert.Equal(t, 2, resp.Data.Created)
	assert.Zero(t, resp.Data.Skipped)

	var siteCount int64
	require.NoError(t, db.Model(&models.Site{}).Count(&siteCount).Error)
	assert.EqualValues(t, 2, siteCount)
}

func TestRunSync_SourceFailure(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{err: sheets.ErrSourceUnavailable}
	_, engine, db := setupTestServer(t, reader)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/run", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// The failed run is still in the audit log.
	var logs []models.SyncLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RunStatusError, logs[0].Status)
}

func TestSchedulerLifecycleEndpoints(t *testing.T) {
	t.Parallel()

	_, engine, _ := setupTestServer(t, &fakeReader{})

	status := func() map[string]any {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync/status", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.Data
	}

	assert.Equal(t, false, status()["running"])

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/start", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, status()["running"])

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/stop", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, status()["running"])
}

func TestUpdateFrequency(t *testing.T) {
	t.Parallel()

	server, engine, _ := setupTestServer(t, &fakeReader{})

	body, _ := json.Marshal(map[string]int{"minutes": 15})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/sync/frequency", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 15, server.SettingsManager.GetUpdateFrequency())
}

func TestUpdateFrequency_RejectsInvalidCadence(t *testing.T) {
	t.Parallel()

	_, engine, _ := setupTestServer(t, &fakeReader{})

	for _, body := range []string{`{"minutes": -3}`, `{}`, `not json`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/api/sync/frequency", bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestListSyncLogs_FiltersByStatus(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{rows: []sheets.Row{{"PVZ ID": "A1"}}}
	_, engine, _ := setupTestServer(t, reader)

	// One successful run, then a failing one.
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/run", nil))
	require.Equal(t, http.StatusOK, w.Code)

	reader.err = sheets.ErrSourceUnavailable
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/sync/run", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sync/logs?status=error", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Items      []models.SyncLog `json:"items"`
			Pagination struct {
				TotalItems int64 `json:"total_items"`
			} `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.EqualValues(t, 1, resp.Data.Pagination.TotalItems)
	assert.Equal(t, models.RunStatusError, resp.Data.Items[0].Status)
}
