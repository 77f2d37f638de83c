// Package export forwards every ticket mutation to an external automation
// endpoint ("shadow export"). Delivery is fire-and-forget: nothing here ever
// fails a caller.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/zulandar/millwright/internal/models"
	"github.com/zulandar/millwright/internal/settings"
)

// requestTimeout bounds one webhook POST.
const requestTimeout = 10 * time.Second

// maxResponseBody caps how much of a response is read back for logging.
const maxResponseBody = 1000

// Client posts event payloads to the settings-configured webhook URL.
type Client struct {
	settings *settings.Store
	http     *http.Client
}

// New creates a shadow-export client.
func New(st *settings.Store) *Client {
	return &Client{
		settings: st,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// Export sends the post-mutation ticket state tagged with the event kind.
// A missing webhook URL disables export silently; failures are logged and
// otherwise ignored.
func (c *Client) Export(ctx context.Context, eventType string, t *models.Ticket) {
	url := c.settings.WebhookURL()
	if url == "" {
		return
	}

	payload := map[string]interface{}{
		"event_type":      eventType,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"source":          "millwright",
		"ticket_id":       t.Code,
		"title":           t.Title,
		"description":     t.Description,
		"priority":        t.Priority,
		"status":          t.Status,
		"machine_id":      t.MachineID,
		"assigned_to":     t.Assignee,
		"reporter":        t.ReporterName,
		"is_machine_down": t.IsMachineDown,
		"created_at":      t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.ScheduledAt != nil {
		payload["scheduled_date"] = t.ScheduledAt.UTC().Format(time.RFC3339)
	}

	status, _, err := c.Send(ctx, url, payload)
	if err != nil {
		log.Printf("export: %s for %s: %v", eventType, t.Code, err)
		return
	}
	if status < 200 || status >= 300 {
		log.Printf("export: %s for %s: HTTP %d", eventType, t.Code, status)
	}
}

// Send posts an arbitrary JSON payload to url and returns the response status
// and a truncated body. The sweep daemon uses this directly so it can record
// the response in webhook_notifications.
func (c *Client) Send(ctx context.Context, url string, payload interface{}) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("export: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("export: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("export: post: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	return resp.StatusCode, string(respBody), nil
}
