package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

// Dispatcher delivers one reconciliation task to its downstream system.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *domain.ReconciliationTask) error
}

// HTTPDispatcher posts the task payload as JSON to the task target URL.
type HTTPDispatcher struct {
	client *http.Client
	apiKey string
}

func NewHTTPDispatcher(timeout time.Duration, apiKey string) *HTTPDispatcher {
	return &HTTPDispatcher{
		client: &http.Client{Timeout: timeout},
		apiKey: apiKey,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, task *domain.ReconciliationTask) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, task.Target, bytes.NewBufferString(task.Payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("x-api-key", d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("downstream returned status %d", resp.StatusCode)
	}
	return nil
}
