package model

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps every ServerConfig validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// DeliveryMode selects how the backend routes outgoing messages.
type DeliveryMode string

const (
	DeliveryDirect     DeliveryMode = "direct"
	DeliveryPropagated DeliveryMode = "propagated"
	DeliveryAuto       DeliveryMode = "auto"
	DeliveryHybrid     DeliveryMode = "hybrid"
)

// ServerConfig is the backend's /api/config document.
type ServerConfig struct {
	PropagationNode      string       `json:"propagation_node,omitempty"`
	DeliveryMode         DeliveryMode `json:"delivery_mode"`
	MaxRetries           int          `json:"max_retries"`
	PreferredAudio       string       `json:"preferred_audio"`
	SaveSent             bool         `json:"save_sent"`
	AutoRetry            bool         `json:"auto_retry"`
	StampCost            *int         `json:"stamp_cost"`
	PropagationStampCost int          `json:"propagation_stamp_cost"`
	AcceptInvalidStamps  bool         `json:"accept_invalid_stamps"`
	MaxStampRetries      int          `json:"max_stamp_retries"`
}

// ApplyDefaults fills zero values with the backend defaults.
func (c *ServerConfig) ApplyDefaults() {
	if c.DeliveryMode == "" {
		c.DeliveryMode = DeliveryDirect
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PreferredAudio == "" {
		c.PreferredAudio = "opus"
	}
	if c.PropagationStampCost == 0 {
		c.PropagationStampCost = 16
	}
	if c.MaxStampRetries == 0 {
		c.MaxStampRetries = 3
	}
}

// Validate checks the fields the backend would reject.
func (c ServerConfig) Validate() error {
	if pn := NormalizeHash(c.PropagationNode); pn != "" {
		if len(pn) != 32 && len(pn) != 64 {
			return fmt.Errorf("%w: propagation_node must be 32 or 64 hex chars, got %d", ErrInvalidConfig, len(pn))
		}
		if _, err := hex.DecodeString(pn); err != nil {
			return fmt.Errorf("%w: propagation_node is not hex: %v", ErrInvalidConfig, err)
		}
	}
	switch c.DeliveryMode {
	case DeliveryDirect, DeliveryPropagated, DeliveryAuto, DeliveryHybrid:
	default:
		return fmt.Errorf("%w: unknown delivery_mode %q", ErrInvalidConfig, c.DeliveryMode)
	}
	if c.MaxRetries < 0 || c.MaxStampRetries < 0 {
		return fmt.Errorf("%w: retry counts must be >= 0", ErrInvalidConfig)
	}
	if c.StampCost != nil && *c.StampCost < 0 {
		return fmt.Errorf("%w: stamp_cost must be >= 0", ErrInvalidConfig)
	}
	return nil
}
