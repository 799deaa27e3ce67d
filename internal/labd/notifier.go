package labd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/metrics"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/config"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

// NotificationPayload is the JSON body posted to a playback's callback URL
type NotificationPayload struct {
	PlaybackID      string   `json:"playback_id"`
	Procedure       string   `json:"procedure"`
	Status          string   `json:"status"`
	Lines           []string `json:"lines"`
	Total           int      `json:"total"`
	CreatedAtUnixMs int64    `json:"created_at_unix_ms"`
	StartedAtUnixMs int64    `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64    `json:"ended_at_unix_ms,omitempty"`
	Error           string   `json:"error,omitempty"`
	Timestamp       int64    `json:"timestamp"` // when the notification was sent
}

// Notifier posts playback results to callback URLs
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.Backoff
	metrics    *metrics.Registry

	wg sync.WaitGroup
}

// NewNotifier builds a notifier from the notifications config. reg may be nil.
func NewNotifier(cfg config.NotificationConfig, reg *metrics.Registry) *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: cfg.GetTimeout()},
		maxRetries: cfg.MaxRetries,
		backoff: utils.NewBackoff(cfg.Backoff,
			utils.MsToDuration(int64(cfg.BaseMs)),
			utils.MsToDuration(int64(cfg.MaxMs))),
		metrics: reg,
	}
}

func unixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func newPayload(rec PlaybackRecord) NotificationPayload {
	return NotificationPayload{
		PlaybackID:      rec.ID,
		Procedure:       rec.Input.Procedure,
		Status:          string(rec.Status),
		Lines:           rec.Lines,
		Total:           rec.Total,
		CreatedAtUnixMs: unixMs(rec.CreatedAt),
		StartedAtUnixMs: unixMs(rec.StartedAt),
		EndedAtUnixMs:   unixMs(rec.EndedAt),
		Error:           rec.Error,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}
}

// Notify sends rec to its callback URL in the background. Records without a
// callback URL are ignored.
func (n *Notifier) Notify(rec PlaybackRecord) {
	if rec.Input.CallbackURL == "" {
		return
	}
	finalURL := strings.ReplaceAll(rec.Input.CallbackURL, "{playback_id}", rec.ID)
	payload := newPayload(rec)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.Send(context.Background(), finalURL, payload); err != nil {
			logger.Error("playback notification failed",
				"playback_id", rec.ID,
				"callback_url", finalURL,
				"error", err)
		}
	}()
}

// Wait blocks until every pending notification has finished
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Send posts payload to url, retrying non-2xx answers and transport errors
func (n *Notifier) Send(ctx context.Context, url string, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying playback notification",
				"playback_id", payload.PlaybackID,
				"attempt", attempt,
				"delay", delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = n.post(ctx, url, body)
		if lastErr == nil {
			logger.Info("playback notification sent",
				"playback_id", payload.PlaybackID,
				"status", payload.Status,
				"attempt", attempt+1)
			n.observe("ok")
			return nil
		}
	}

	n.observe("failed")
	return fmt.Errorf("after %d attempts: %w", n.maxRetries+1, lastErr)
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "wirelesslab-labd/1.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("callback returned status %d: %s", resp.StatusCode, string(respBody))
}

func (n *Notifier) observe(result string) {
	if n.metrics != nil {
		n.metrics.NotificationsSent.WithLabelValues(result).Inc()
	}
}
