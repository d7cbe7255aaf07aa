package backend

import (
	"context"
	"net/url"

	"lxmf-chat/pkg/model"
)

// TelemetryHistory fetches stored telemetry samples for peer over rng (e.g. "24h").
func (c *Client) TelemetryHistory(ctx context.Context, peer, rng string) ([]model.TelemetrySample, error) {
	if rng == "" {
		rng = "24h"
	}
	var out []model.TelemetrySample
	path := "/api/telemetry/history/" + url.PathEscape(model.NormalizeHash(peer)) + "?range=" + url.QueryEscape(rng)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Config returns the server configuration.
func (c *Client) Config(ctx context.Context) (model.ServerConfig, error) {
	var cfg model.ServerConfig
	if err := c.getJSON(ctx, "/api/config", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveConfig stores cfg and returns the configuration the server kept.
func (c *Client) SaveConfig(ctx context.Context, cfg model.ServerConfig) (model.ServerConfig, error) {
	var resp struct {
		ack
		Config *model.ServerConfig `json:"config"`
	}
	if err := c.postJSON(ctx, "/api/config", cfg, &resp); err != nil {
		return cfg, err
	}
	if err := resp.check("config save"); err != nil {
		return cfg, err
	}
	if resp.Config != nil {
		return *resp.Config, nil
	}
	return cfg, nil
}

// StartPropagationSync asks the server to retrieve messages from its propagation node.
func (c *Client) StartPropagationSync(ctx context.Context) error {
	var resp ack
	if err := c.postJSON(ctx, "/api/lxmf/propagation/sync", nil, &resp); err != nil {
		return err
	}
	return resp.check("propagation sync")
}

// PropagationStatus returns the state of the running sync job.
func (c *Client) PropagationStatus(ctx context.Context) (model.PropagationStatus, error) {
	var resp struct {
		Status *model.PropagationStatus `json:"status"`
	}
	if err := c.getJSON(ctx, "/api/lxmf/propagation/status", &resp); err != nil {
		return model.PropagationStatus{}, err
	}
	if resp.Status == nil {
		return model.PropagationStatus{State: model.PropIdle}, nil
	}
	return *resp.Status, nil
}

// ConvertAudio runs the server-side batch conversion of received audio.
func (c *Client) ConvertAudio(ctx context.Context, opts model.ConvertOptions) (model.ConvertResult, error) {
	var out model.ConvertResult
	if err := c.postJSON(ctx, "/api/audio/convert-all", opts, &out); err != nil {
		return out, err
	}
	return out, ack{Success: out.Success}.check("audio conversion")
}

// CleanupAudio removes originals that have been converted.
func (c *Client) CleanupAudio(ctx context.Context) (model.CleanupResult, error) {
	var out model.CleanupResult
	if err := c.postJSON(ctx, "/api/audio/cleanup", nil, &out); err != nil {
		return out, err
	}
	return out, ack{Success: out.Success}.check("audio cleanup")
}
