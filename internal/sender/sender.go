package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/speedwagon-io/sensorform/internal/config"
	"github.com/speedwagon-io/sensorform/internal/lib/logger/sl"
	"github.com/speedwagon-io/sensorform/internal/model"
)

const (
	RequestIDHeader = "X-Request-ID"

	maxResponseBody = 4 << 10
)

type Sender interface {
	Send(ctx context.Context, record *model.SensorRecord) error
	Health(ctx context.Context) error
}

// StatusError is returned for any response outside 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.Code, e.Body)
}

type HTTPSender struct {
	log    *slog.Logger
	url    string
	client *http.Client
}

func NewHTTPSender(log *slog.Logger, cfg *config.APIConfig) *HTTPSender {
	return &HTTPSender{
		log: log,
		url: cfg.URL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send POSTs the record once. There is no retry; the caller decides what a
// failure means.
func (s *HTTPSender) Send(ctx context.Context, record *model.SensorRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal sensor record: %w", err)
	}

	requestID := uuid.New().String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		s.log.Debug("failed to read response body",
			slog.String("request_id", requestID),
			sl.Err(readErr),
		)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.log.Debug("sensor record accepted",
			slog.String("request_id", requestID),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response", string(body)),
		)
		return nil
	}

	return &StatusError{
		Code: resp.StatusCode,
		Body: string(bytes.TrimSpace(body)),
	}
}

func (s *HTTPSender) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

func (s *HTTPSender) Close() {
	s.client.CloseIdleConnections()
}

// LogSender logs records instead of sending them (dry-run).
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, record *model.SensorRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sensor record: %w", err)
	}

	s.log.Info("SEND",
		slog.String("name", record.Name),
		slog.Int("tags_count", len(record.Tags)),
		slog.String("payload", string(data)),
	)

	return nil
}

func (s *LogSender) Health(ctx context.Context) error {
	return nil
}
