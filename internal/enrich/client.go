// Package enrich submits catalog items to the external classification and
// enrichment service.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bicyclebluebook/catalog-sync/internal/catalog"
)

const syncPath = "/api/sync-bicycle-data"

// Config describes the enrichment endpoint and the traceability tags sent
// with every submission.
type Config struct {
	BaseURL      string
	SecretHeader string
	SecretValue  string
	// Environment tags each request so the service can route staging and
	// production submissions separately.
	Environment string
	// App is the utm_source value identifying this tool.
	App string
	// RunID ties submissions in the service's logs back to one sync run.
	RunID   string
	Timeout time.Duration
}

// Client posts bicycles to the enrichment service.
type Client struct {
	cfg        Config
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewClient builds a Client with a fixed request timeout from config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("enrich base url is required")
	}
	if cfg.SecretHeader == "" {
		return nil, fmt.Errorf("enrich secret header is required")
	}
	query := url.Values{}
	query.Set("env", cfg.Environment)
	if cfg.App != "" {
		query.Set("utm_source", cfg.App)
	}
	return &Client{
		cfg:       cfg,
		endpoint:  strings.TrimSuffix(cfg.BaseURL, "/") + syncPath + "?" + query.Encode(),
		userAgent: fmt.Sprintf("bicyclebluebook (app: %s, environment: %s, run: %s)", cfg.App, cfg.Environment, cfg.RunID),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// payload is the wire shape of one submission.
type payload struct {
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	ModelBicycleID int64   `json:"model_bicycle_id"`
	ModelID        int64   `json:"model_id"`
	ModelLowerCase string  `json:"model_lower_case"`
	MSRP           float64 `json:"msrp"`
	Title          string  `json:"title"`
	Type           string  `json:"type"`
	Year           int     `json:"year"`
}

// Submit posts one bicycle's current fields. Any transport error or status
// >= 400 is returned as an error; the caller classifies it as a per-item
// failure outcome.
func (c *Client) Submit(ctx context.Context, b catalog.Bicycle) error {
	body, err := json.Marshal(payload{
		Make:           b.Brand,
		Model:          b.Model,
		ModelBicycleID: b.ModelID,
		ModelID:        b.ModelID,
		ModelLowerCase: strings.ToLower(b.Model),
		MSRP:           b.MSRP,
		Title:          b.Name,
		Type:           b.Type,
		Year:           b.Year,
	})
	if err != nil {
		return fmt.Errorf("marshal bicycle %d: %w", b.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for bicycle %d: %w", b.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(c.cfg.SecretHeader, c.cfg.SecretValue)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("submit bicycle %d: %w", b.ID, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submit bicycle %d: status %d: %s",
			b.ID, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
