// Package vision invokes the remote pose/segmentation worker. The worker is
// fire-and-forget from this side: it fetches the media from storage, runs
// the models and reports back through the scan callback endpoint.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pedalworks/bikefit/internal/models"
)

// ErrWorkerUnavailable is returned when the invocation still fails after the
// configured retries.
var ErrWorkerUnavailable = errors.New("vision: worker unavailable")

const defaultRetries = 3

type Client struct {
	baseURL    string
	retries    int
	httpClient *http.Client
}

func NewClient(baseURL string, retries int) *Client {
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Client{
		baseURL: baseURL,
		retries: retries,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type invokeRequest struct {
	Input invokeInput `json:"input"`
}

type invokeInput struct {
	ScanUUID      string `json:"scan_uuid"`
	ProcessType   string `json:"process_type"`
	FileExtension string `json:"file_extension"`
}

// Invoke asks the worker to process one modality of a scan. Only the
// invocation is retried; the processing result arrives later via callback.
func (c *Client) Invoke(ctx context.Context, scanUUID string, processType models.Modality, fileExtension string) error {
	body, err := json.Marshal(invokeRequest{
		Input: invokeInput{
			ScanUUID:      scanUUID,
			ProcessType:   string(processType),
			FileExtension: fileExtension,
		},
	})
	if err != nil {
		return fmt.Errorf("marshaling invoke request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		log.Printf("[VISION] Invoke attempt %d/%d for scan %s (%s) failed: %v",
			attempt+1, c.retries, scanUUID, processType, lastErr)
	}

	return fmt.Errorf("%w: %v", ErrWorkerUnavailable, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/runsync", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("worker returned status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
