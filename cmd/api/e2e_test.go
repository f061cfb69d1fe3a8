package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-programs/internal/adapters/catalog"
	adapterHTTP "github.com/comitanigiacomo/kanso-programs/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-programs/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-programs/internal/config"
	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
	"github.com/comitanigiacomo/kanso-programs/internal/core/services"
)

type progressResponse struct {
	Saved    bool                        `json:"saved"`
	Progress domain.UserProgressSnapshot `json:"progress"`
}

func bootRouter(t *testing.T, dataDir string, clock domain.Clock) *gin.Engine {
	t.Helper()

	fs, err := repository.NewFileStore(dataDir)
	require.NoError(t, err)

	programs := catalog.Default()
	tracker := services.NewTrackerService(programs, services.NewPersistenceService(fs, programs, clock), clock)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	tracker.Start(ctx)

	return adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		Tracker:     tracker,
		StorageName: config.BackendFile,
		StartTime:   time.Now(),
	})
}

func call(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEndToEnd_ProgramLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dataDir := t.TempDir()
	clock := domain.NewFakeClock(time.Date(2026, 4, 6, 19, 30, 0, 0, time.UTC))
	router := bootRouter(t, dataDir, clock)

	toggle := `{"program":"hybrid","week":1,"habit_index":1,"checked":true}`
	var exported string

	t.Run("1. Check a habit for seven days", func(t *testing.T) {
		for day := 0; day < 7; day++ {
			w := call(router, "POST", "/api/v1/habits/toggle", toggle)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			if day < 6 {
				clock.AdvanceDays(1)
			}
		}

		w := call(router, "GET", "/api/v1/progress", "")
		require.Equal(t, http.StatusOK, w.Code)

		var res progressResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 7, res.Progress.CurrentStreak)
		assert.Equal(t, 7, res.Progress.TotalCompletions)
		assert.Equal(t, 7*10+25+75, res.Progress.TotalPoints, "Hydration Hero and Streak Master")
	})

	t.Run("2. Restart keeps the progress", func(t *testing.T) {
		router = bootRouter(t, dataDir, clock)

		w := call(router, "GET", "/api/v1/progress", "")
		require.Equal(t, http.StatusOK, w.Code)

		var res progressResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 7, res.Progress.TotalCompletions)
		assert.Equal(t, 7, res.Progress.LongestStreak)
	})

	t.Run("3. Export", func(t *testing.T) {
		w := call(router, "GET", "/api/v1/data/export", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "habit_tracker_export_2026-04-12.json")
		exported = w.Body.String()
	})

	t.Run("4. Reset clears everything", func(t *testing.T) {
		w := call(router, "POST", "/api/v1/data/reset", "")
		require.Equal(t, http.StatusOK, w.Code)

		var res progressResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Zero(t, res.Progress.TotalPoints)
		assert.Zero(t, res.Progress.LongestStreak)
	})

	t.Run("5. Import restores the backup", func(t *testing.T) {
		w := call(router, "POST", "/api/v1/data/import", exported)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		router = bootRouter(t, dataDir, clock)

		w = call(router, "GET", "/api/v1/progress", "")
		var res progressResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 7, res.Progress.TotalCompletions)
		assert.Equal(t, 7*10+25+75, res.Progress.TotalPoints)
	})
}
