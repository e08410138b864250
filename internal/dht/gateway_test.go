package dht

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/tensorplex-labs/swarmwatch/internal/config"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	g, err := NewGateway(&config.DHTEnvConfig{DHTGatewayURL: ts.URL, DHTTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

func TestNewGateway_NilConfig(t *testing.T) {
	_, err := NewGateway(nil)
	if err == nil {
		t.Fatalf("expected error when cfg is nil")
	}
}

func TestNewGateway_EmptyURL(t *testing.T) {
	_, err := NewGateway(&config.DHTEnvConfig{})
	if err == nil {
		t.Fatalf("expected error when gateway url is empty")
	}
}

func TestGatewayGet_PlainValue(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != gatewayGetPath || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if q.Get("key") != "rewards_2_1" || q.Get("beam_size") != "100" || q.Get("latest") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"found":true,"value":{"QmA":1.5,"QmB":2},"expiration_time":1700000000}`))
	})

	entry, err := g.Get(context.Background(), "rewards_2_1", 100, true)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	rewards, err := decodeRewards(entry)
	if err != nil {
		t.Fatalf("decode rewards: %v", err)
	}
	if rewards["QmA"] != 1.5 || rewards["QmB"] != 2 {
		t.Fatalf("unexpected rewards: %+v", rewards)
	}
}

func TestGatewayGet_SubkeysZstd(t *testing.T) {
	payload := []byte(`{"found":true,"subkeys":{"q1":{"value":[1700000000.5,{"answer":"42"}],"expiration_time":0}}}`)
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	compressed := enc.EncodeAll(payload, nil)
	enc.Close()

	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "zstd" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "zstd")
		w.WriteHeader(http.StatusOK)
		w.Write(compressed)
	})

	entry, err := g.Get(context.Background(), "outputs_QmA_0_0", 100, false)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	outputs, err := decodeOutputs(entry)
	if err != nil {
		t.Fatalf("decode outputs: %v", err)
	}
	if outputs["q1"].Timestamp != 1700000000.5 || outputs["q1"].Output["answer"] != "42" {
		t.Fatalf("unexpected outputs: %+v", outputs)
	}
}

func TestGatewayGet_NotFound(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := g.Get(context.Background(), "rewards_0_0", 100, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGatewayGet_FoundFalse(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"found":false}`))
	})
	_, err := g.Get(context.Background(), "rewards_0_0", 100, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGatewayGet_ServerError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("no peers"))
	})
	_, err := g.Get(context.Background(), "rewards_0_0", 100, true)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestGatewayGet_BadRequestIsUnexpected(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad"))
	})
	_, err := g.Get(context.Background(), "rewards_0_0", 100, true)
	if err == nil || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a plain error, got %v", err)
	}
}

func TestGatewayGet_ContextDeadline(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.Get(ctx, "rewards_0_0", 100, true)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
