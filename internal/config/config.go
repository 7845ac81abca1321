package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	ErrInvalidDizzinessBound = errors.New("config: max_dizziness must be positive")
	ErrInvalidStumbleOdds    = errors.New("config: stumble_threshold out of range")
	ErrKeepaliveOneWay       = errors.New("config: tester_present response must be expected")
)

// Defaults mirror the somersault ECU communication parameters; the
// 3s idle timeout is the standard fallback when the parameter is
// absent from the loaded file.
const (
	DefaultMaxDizziness     = 10
	DefaultStumbleThreshold = 100
	DefaultIdleTimeout      = 3 * time.Second

	// ISO-TP addressed identifiers of the lazy ECU.
	DefaultReceiveID = 0x7D0
	DefaultSendID    = 0x1B8
)

// EndpointConfig carries the ECU-side runtime parameters.
type EndpointConfig struct {
	// MaxDizziness bounds the cumulative flip cost.
	MaxDizziness int
	// StumbleThreshold is the per-step stumble bound on a uniform
	// draw from [0, 10000).
	StumbleThreshold int
	// IdleTimeout is the tester-present silence interval after which
	// the session is closed.
	IdleTimeout time.Duration
	// ReceiveID and SendID address the transport channel from the
	// ECU's perspective.
	ReceiveID uint32
	SendID    uint32
	// AdminAddr, when non-empty, enables the HTTP admin surface.
	AdminAddr string
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		MaxDizziness:     DefaultMaxDizziness,
		StumbleThreshold: DefaultStumbleThreshold,
		IdleTimeout:      DefaultIdleTimeout,
		ReceiveID:        DefaultReceiveID,
		SendID:           DefaultSendID,
	}
}

type fileConfig struct {
	Ecu struct {
		MaxDizziness     int `toml:"max_dizziness"`
		StumbleThreshold int `toml:"stumble_threshold"`
	} `toml:"ecu"`
	Comm struct {
		TesterPresentTimeUS      int64 `toml:"tester_present_time_us"`
		TesterPresentExpResponse bool  `toml:"tester_present_exp_response"`
	} `toml:"comm"`
	Transport struct {
		ReceiveID uint32 `toml:"receive_id"`
		SendID    uint32 `toml:"send_id"`
	} `toml:"transport"`
	Admin struct {
		Addr string `toml:"addr"`
	} `toml:"admin"`
}

// Load reads path and overlays it onto the defaults. Only keys present
// in the file override; everything else keeps its default.
func Load(path string) (EndpointConfig, error) {
	cfg := DefaultEndpointConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return EndpointConfig{}, fmt.Errorf("load endpoint config: %w", err)
	}

	if meta.IsDefined("ecu", "max_dizziness") {
		cfg.MaxDizziness = raw.Ecu.MaxDizziness
	}
	if meta.IsDefined("ecu", "stumble_threshold") {
		cfg.StumbleThreshold = raw.Ecu.StumbleThreshold
	}
	if meta.IsDefined("comm", "tester_present_time_us") {
		cfg.IdleTimeout = time.Duration(raw.Comm.TesterPresentTimeUS) * time.Microsecond
	}
	if meta.IsDefined("comm", "tester_present_exp_response") && !raw.Comm.TesterPresentExpResponse {
		return EndpointConfig{}, ErrKeepaliveOneWay
	}
	if meta.IsDefined("transport", "receive_id") {
		cfg.ReceiveID = raw.Transport.ReceiveID
	}
	if meta.IsDefined("transport", "send_id") {
		cfg.SendID = raw.Transport.SendID
	}
	if meta.IsDefined("admin", "addr") {
		cfg.AdminAddr = raw.Admin.Addr
	}

	if err := cfg.Validate(); err != nil {
		return EndpointConfig{}, err
	}
	return cfg, nil
}

func (c EndpointConfig) Validate() error {
	if c.MaxDizziness <= 0 {
		return ErrInvalidDizzinessBound
	}
	if c.StumbleThreshold < 0 || c.StumbleThreshold > 10000 {
		return ErrInvalidStumbleOdds
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("config: idle timeout must be positive, got %v", c.IdleTimeout)
	}
	return nil
}
