// Package coordinator provides a client for the swarm coordinator, which
// reports the round and stage the training run is currently in.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/swarmwatch/internal/config"
)

const roundAndStagePath = "/coordinator/round-and-stage"

// ErrUnavailable wraps every failure to obtain a position from the coordinator.
var ErrUnavailable = errors.New("coordinator: unavailable")

// Coordinator reports the current (round, stage) of the run.
type Coordinator interface {
	RoundAndStage(ctx context.Context) (int, int, error)
}

// RoundAndStage is the coordinator's response payload.
type RoundAndStage struct {
	Round int `json:"round"`
	Stage int `json:"stage"`
}

// Client is an HTTP Coordinator with retries.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
}

func NewClient(cfg *config.CoordinatorEnvConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("coordinator configuration cannot be nil")
	}
	if cfg.CoordinatorURL == "" {
		return nil, fmt.Errorf("coordinator url cannot be empty")
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.CoordinatorRetryMax
	client.HTTPClient.Timeout = cfg.CoordinatorTimeout
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil

	baseURL := strings.TrimSuffix(cfg.CoordinatorURL, "/")
	log.Info().
		Str("base_url", baseURL).
		Int("retry_max", client.RetryMax).
		Str("timeout", client.HTTPClient.Timeout.String()).
		Msg("coordinator client initialized")

	return &Client{
		httpClient: client,
		baseURL:    baseURL,
	}, nil
}

// RoundAndStage fetches the current position. Any failure, including a
// malformed or negative position, is reported wrapped in ErrUnavailable.
func (c *Client) RoundAndStage(ctx context.Context) (int, int, error) {
	url := c.baseURL + roundAndStagePath

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: get round and stage: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, 0, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var out RoundAndStage
	if err := sonic.Unmarshal(body, &out); err != nil {
		return 0, 0, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if out.Round < 0 || out.Stage < 0 {
		return 0, 0, fmt.Errorf("%w: invalid position round=%d stage=%d", ErrUnavailable, out.Round, out.Stage)
	}

	return out.Round, out.Stage, nil
}
