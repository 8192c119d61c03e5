package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"turnkeep/config"
	"turnkeep/pkg/logger"

	"github.com/google/uuid"
)

// CalendarClient is the remote callable that fetches upstream reservation
// feeds and reconciles them. It may fail or hang; callers treat it as an
// opaque, possibly-slow remote call.
type CalendarClient interface {
	// Sync pulls all sources, or a single one when sourceID is set, and
	// returns the number of reservations synchronized.
	Sync(ctx context.Context, sourceID *uuid.UUID) (int, error)
}

type calendarService struct {
	client *http.Client
	url    string
	token  string
	log    logger.Logger
}

func NewCalendarService(config config.Config) CalendarClient {
	return &calendarService{
		// No client timeout: the orchestrator bounds the call itself and
		// deliberately lets a timed-out sync finish in the background.
		client: &http.Client{},
		url:    config.CalendarSyncURL,
		token:  config.CalendarSyncToken,
		log:    logger.New("calendarService"),
	}
}

type syncRequest struct {
	SourceID *uuid.UUID `json:"sourceId,omitempty"`
}

type syncResponse struct {
	Synced int `json:"synced"`
}

func (s *calendarService) Sync(ctx context.Context, sourceID *uuid.UUID) (int, error) {
	log := s.log.TraceFromContext(ctx).Function("Sync")

	if s.url == "" {
		return 0, log.Error("calendar sync url is not configured")
	}

	body, err := json.Marshal(syncRequest{SourceID: sourceID})
	if err != nil {
		return 0, log.Err("failed to marshal sync request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, log.Err("failed to create sync request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, log.Err("calendar sync request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, log.Err(
			"calendar sync returned non-200",
			fmt.Errorf("status %d", resp.StatusCode),
			"status", resp.StatusCode,
		)
	}

	var result syncResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, log.Err("failed to decode sync response", err)
	}

	log.Info(
		"calendar sync completed",
		"synced", result.Synced,
		"duration", time.Since(started).String(),
	)

	return result.Synced, nil
}
