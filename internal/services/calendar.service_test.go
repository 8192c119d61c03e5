package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"turnkeep/config"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarService_Sync(t *testing.T) {
	sourceID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			SourceID *uuid.UUID `json:"sourceId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SourceID)
		assert.Equal(t, sourceID, *req.SourceID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"synced": 9}`))
	}))
	defer server.Close()

	service := NewCalendarService(config.Config{
		CalendarSyncURL:   server.URL,
		CalendarSyncToken: "test-token",
	})

	synced, err := service.Sync(context.Background(), &sourceID)
	require.NoError(t, err)
	assert.Equal(t, 9, synced)
}

func TestCalendarService_SyncAllSourcesOmitsID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_, present := req["sourceId"]
		assert.False(t, present, "a full sync must not name a source")

		_, _ = w.Write([]byte(`{"synced": 3}`))
	}))
	defer server.Close()

	service := NewCalendarService(config.Config{CalendarSyncURL: server.URL})

	synced, err := service.Sync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, synced)
}

func TestCalendarService_SyncNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service := NewCalendarService(config.Config{CalendarSyncURL: server.URL})

	_, err := service.Sync(context.Background(), nil)
	assert.Error(t, err)
}

func TestCalendarService_MissingURL(t *testing.T) {
	service := &calendarService{
		client: &http.Client{},
		log:    logger.New("test"),
	}

	_, err := service.Sync(context.Background(), nil)
	assert.Error(t, err)
}
