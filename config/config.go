// Package config holds the tunable parameters of a Core, grounded on the
// teacher's torconfig.Config: a plain struct with a constructor supplying
// sane defaults, no file or environment parsing. This spec keeps no
// on-disk state (§4.1), so there is nothing here that reads from outside
// the process.
package config

import "time"

// Mode selects the target circuit length a Send call requests.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeAdaptive Mode = "adaptive"
	ModeMix      Mode = "mix"
)

// Config collects every tunable of the circuit lifecycle, forwarding
// state machine, and cover-traffic scheduler.
type Config struct {
	// MinHops is the minimum circuit length permitted for any circuit
	// carrying user payload. §4.5 fixes this at 3.
	MinHops int

	// MaxHops is the configured maximum circuit length. HopRange does not
	// read it (ModeMix uses the fixed mixMinHops..mixMaxHops range), and
	// circuit construction does not cap circuits at it.
	MaxHops int

	// CircuitTTL is how long a circuit remains usable after creation.
	CircuitTTL time.Duration

	// CircuitRefreshInterval is the period of the background task that
	// expires circuits past their TTL. That task builds no replacements;
	// the next Send that finds no active circuit for its mode builds one.
	CircuitRefreshInterval time.Duration

	// HandshakeTimeout bounds how long Send waits for an in-flight
	// 0xBB handshake to complete before failing.
	HandshakeTimeout time.Duration

	// StalenessWindow is the peer-directory eviction threshold: peers
	// not heard from within this window are evicted.
	StalenessWindow time.Duration

	// CoverEnabled toggles the cover-traffic scheduler.
	CoverEnabled bool

	// CoverRate is the target mean rate, in packets per second, of the
	// cover-traffic scheduler (λ in the jittered Poisson-ish model).
	CoverRate float64

	// JitterMax bounds the uniform random delay applied before every
	// forwarded or originated frame.
	JitterMax time.Duration
}

// Default returns the configuration described by the specification's
// stated defaults.
func Default() *Config {
	return &Config{
		MinHops:                3,
		MaxHops:                5,
		CircuitTTL:             10 * time.Minute,
		CircuitRefreshInterval: 5 * time.Minute,
		HandshakeTimeout:       5 * time.Second,
		StalenessWindow:        60 * time.Second,
		CoverEnabled:           true,
		CoverRate:              2.0,
		JitterMax:              100 * time.Millisecond,
	}
}

// mixMinHops and mixMaxHops bound ModeMix's random target length (§4.5:
// mix = 4-5).
const (
	mixMinHops = 4
	mixMaxHops = 5
)

// HopRange returns the inclusive [min, max] circuit length requested for
// m, per §4.5: fast=2, adaptive=3, mix=4-5. The caller samples uniformly
// within the range (a fixed point for fast and adaptive).
func (c *Config) HopRange(m Mode) (min, max int) {
	switch m {
	case ModeFast:
		return 2, 2
	case ModeAdaptive:
		return 3, 3
	case ModeMix:
		return mixMinHops, mixMaxHops
	default:
		return c.MinHops, c.MinHops
	}
}
