package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medreminder/internal/application/dto"
	"medreminder/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReminderServer(t *testing.T) (*echo.Echo, services) {
	t.Helper()
	svc := newServices(t)
	h := NewReminderHandler(svc.reminders, svc.background, logger.Nop())

	e := echo.New()
	e.GET("/api/reminders", h.List)
	e.POST("/api/reminders", h.Create)
	e.GET("/api/reminders/:id", h.Get)
	e.PUT("/api/reminders/:id", h.Update)
	e.DELETE("/api/reminders/:id", h.Delete)
	e.GET("/api/alarms", h.Alarms)
	return e, svc
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestReminderHandlerLifecycle(t *testing.T) {
	e, _ := newReminderServer(t)

	rec := do(e, http.MethodPost, "/api/reminders",
		`{"user_id":"U1","medicine_name":"Aspirin","dosage":"100mg","frequency":"daily","time":"08:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dto.ReminderPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Aspirin", created.MedicineName)
	assert.Equal(t, "08:00", created.Time)

	rec = do(e, http.MethodGet, "/api/reminders?user_id=U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []dto.ReminderPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = do(e, http.MethodPut, "/api/reminders/"+created.ID, `{"time":"09:30"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated dto.ReminderPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "09:30", updated.Time)

	rec = do(e, http.MethodDelete, "/api/reminders/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, "/api/reminders/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReminderHandlerRejectsInvalidInput(t *testing.T) {
	e, _ := newReminderServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"medicine_name":"Aspirin","time":"08:00"}`},
		{"bad time", `{"user_id":"U1","medicine_name":"Aspirin","time":"8am"}`},
		{"bad frequency", `{"user_id":"U1","medicine_name":"Aspirin","time":"08:00","frequency":"hourly"}`},
		{"malformed json", `{"user_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/reminders", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := do(e, http.MethodPut, "/api/reminders/missing", `{"time":"09:00"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReminderHandlerAlarmsReflectStoreChanges(t *testing.T) {
	e, svc := newReminderServer(t)
	svc.reminders.Subscribe(svc.background.ApplyChange)

	rec := do(e, http.MethodPost, "/api/reminders",
		`{"user_id":"U1","medicine_name":"Aspirin","time":"08:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(e, http.MethodGet, "/api/alarms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alarms AlarmsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alarms))
	require.Len(t, alarms.Alarms, 1)
	assert.Equal(t, 8, alarms.Alarms[0].FireAt.Hour())
	assert.Empty(t, alarms.Active)

	list, err := svc.reminders.List(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, alarms.Alarms[0].ReminderID)
}
