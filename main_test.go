package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"custombuttons-restful/auth"
	"custombuttons-restful/config"
	"custombuttons-restful/controllers"
	"custombuttons-restful/database"
	"custombuttons-restful/middleware"
	"custombuttons-restful/repositories"
	"custombuttons-restful/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	log := zap.NewNop()
	db, err := database.Open(cfg, log)
	require.NoError(t, err)
	require.NoError(t, database.SeedInitialData(db, "adminpassword", log.Sugar()))

	svc := services.NewCustomButtonService(repositories.NewCustomButtonRepository(db), log.Sugar())
	meta := services.NewMetadataService(repositories.NewMetadataRepository(db), "SYSTEM/PROCESS", nil, log.Sugar())
	ctl := controllers.NewCustomButtonController(svc, meta, auth.NewPermissionChecker(db), "", log)
	return newContainer(db, ctl, log)
}

func TestLoginThenCreate(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth", bytes.NewBufferString(`{"username": "admin", "password": "adminpassword"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login auth.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	req = httptest.NewRequest(http.MethodPost, "/api/custom_buttons", bytes.NewBufferString(`{"name": "from admin"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	req.Header.Set(middleware.HeaderRequestID, "req-1")
	req.Host = "api.example.com"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(middleware.HeaderRequestID))
	assert.Contains(t, w.Body.String(), "http://api.example.com/api/custom_buttons/")
}

func TestOperationalEndpoints(t *testing.T) {
	handler := newTestServer(t)

	for path, want := range map[string]string{
		"/health":       `"status":"ok"`,
		"/metrics":      "http_requests_in_flight",
		"/apidocs.json": "/api/custom_buttons/{id}",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), want, path)
	}
}
