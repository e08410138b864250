package dht

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/swarmwatch/internal/config"
)

const gatewayGetPath = "/dht/get"

// Gateway is a Store backed by the DHT gateway sidecar, which runs a hivemind
// peer and answers lookups over HTTP.
type Gateway struct {
	client  *resty.Client
	decoder *zstd.Decoder
	BaseURL string
}

// NewGateway creates a gateway client using the provided environment configuration.
func NewGateway(cfg *config.DHTEnvConfig) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.DHTGatewayURL == "" {
		return nil, fmt.Errorf("dht gateway url cannot be empty")
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	client := resty.New().
		SetBaseURL(cfg.DHTGatewayURL).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Encoding", "zstd").
		SetTimeout(cfg.DHTTimeout)

	return &Gateway{
		client:  client,
		decoder: decoder,
		BaseURL: cfg.DHTGatewayURL,
	}, nil
}

// Get looks a key up through the gateway. Transport failures and 5xx
// responses are reported as ErrUnavailable, 404 or found=false as ErrNotFound.
func (g *Gateway) Get(ctx context.Context, key string, beamSize int, latest bool) (Entry, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":       key,
			"beam_size": strconv.Itoa(beamSize),
			"latest":    strconv.FormatBool(latest),
		}).
		Get(gatewayGetPath)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("dht gateway request failed")
		return Entry{}, fmt.Errorf("get %s: %w: %w", key, ErrUnavailable, err)
	}

	body := resp.Body()
	if resp.Header().Get("Content-Encoding") == "zstd" {
		decompressed, err := g.decoder.DecodeAll(body, nil)
		if err != nil {
			return Entry{}, fmt.Errorf("failed to decompress response for %s: %w", key, err)
		}
		body = decompressed
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return Entry{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	case resp.StatusCode() >= http.StatusInternalServerError:
		log.Debug().Int("status", resp.StatusCode()).Str("key", key).Msg("dht gateway non-2xx")
		return Entry{}, fmt.Errorf("get %s returned status %d: %w", key, resp.StatusCode(), ErrUnavailable)
	case resp.IsError():
		return Entry{}, fmt.Errorf("get %s returned status %d: %s", key, resp.StatusCode(), string(body))
	}

	var entry Entry
	if err := sonic.Unmarshal(body, &entry); err != nil {
		return Entry{}, fmt.Errorf("decode gateway response for %s: %w", key, err)
	}
	if !entry.Found {
		return Entry{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return entry, nil
}

// Close releases the zstd decoder.
func (g *Gateway) Close() {
	if g.decoder != nil {
		g.decoder.Close()
	}
}
