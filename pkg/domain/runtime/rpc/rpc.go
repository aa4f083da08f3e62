package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/omniphi/orchestrator/pkg/utils/retry"
)

// Status is the part of a validator's `GET /status` answer this
// orchestrator reads.
type Status struct {
	// base64 consensus public key, as the validator announces it.
	// Empty until the validator has loaded its key material.
	ConsensusPubkey string

	// latest block height the validator knows. Zero until it has
	// seen any block.
	BlockHeight int64

	// true while the validator replays history to reach the chain head.
	CatchingUp bool
}

func (s Status) Equal(other Status) bool {
	return s == other
}

// Client probes a validator node over its CometBFT-compatible RPC.
type Client struct {
	endpoint string
	http     *http.Client
}

type Option func(*Client) *Client

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) *Client {
		c.http = h
		return c
	}
}

// New creates a Client for endpoint.
//
// endpoint is "host:port" or a full URL; a bare "host:port" is probed
// over plain http.
func New(endpoint string, options ...Option) *Client {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	c := &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     http.DefaultClient,
	}
	for _, opt := range options {
		c = opt(c)
	}
	return c
}

// Status asks the validator for its current state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/status", nil)
	if err != nil {
		return Status{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("status probe against %s: %s", c.endpoint, resp.Status)
	}

	var payload struct {
		Result struct {
			SyncInfo struct {
				// block heights are decimal strings on the wire.
				LatestBlockHeight string `json:"latest_block_height"`
				CatchingUp        bool   `json:"catching_up"`
			} `json:"sync_info"`
			ValidatorInfo struct {
				PubKey struct {
					Value string `json:"value"`
				} `json:"pub_key"`
			} `json:"validator_info"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Status{}, fmt.Errorf("status probe against %s: %w", c.endpoint, err)
	}

	status := Status{
		ConsensusPubkey: payload.Result.ValidatorInfo.PubKey.Value,
		CatchingUp:      payload.Result.SyncInfo.CatchingUp,
	}
	if h := payload.Result.SyncInfo.LatestBlockHeight; h != "" {
		height, err := strconv.ParseInt(h, 10, 64)
		if err != nil {
			return Status{}, fmt.Errorf(
				"status probe against %s: block height %q is not a number: %w",
				c.endpoint, h, err,
			)
		}
		status.BlockHeight = height
	}

	return status, nil
}

// WaitPubkey polls the validator until it answers with its consensus
// public key.
//
// Probe errors are retried on the given backoff; the wait ends when ctx
// does. A validator freshly started needs a few seconds before its RPC
// binds, so the first attempts failing is the normal case.
func WaitPubkey(ctx context.Context, b retry.Backoff, c *Client) (string, error) {
	return retry.Blocking(ctx, b, func() (string, error) {
		status, err := c.Status(ctx)
		if err != nil || status.ConsensusPubkey == "" {
			return "", retry.ErrRetry
		}
		return status.ConsensusPubkey, nil
	})
}
