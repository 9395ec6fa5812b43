// Package config holds the typed settings for every binary. Values start from
// Defaults and may be overridden by a config file and PODRACER_* environment
// variables (see Load).
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/automoto/podracer-mp/shared/netconfig"
	"github.com/automoto/podracer-mp/shared/podphysics"
)

// Config is the root of all settings.
type Config struct {
	LogLevel  string `mapstructure:"logLevel"`
	LogPretty bool   `mapstructure:"logPretty"`

	Server    ServerConfig      `mapstructure:"server"`
	Authority AuthorityConfig   `mapstructure:"authority"`
	Reconcile ReconcileConfig   `mapstructure:"reconcile"`
	Input     InputConfig       `mapstructure:"input"`
	Interp    InterpConfig      `mapstructure:"interp"`
	Bot       BotConfig         `mapstructure:"bot"`
	Tuning    podphysics.Tuning `mapstructure:"tuning"`
}

// ServerConfig contains race server settings
type ServerConfig struct {
	Port       uint   `mapstructure:"port"`
	TickRate   int    `mapstructure:"tickRate"`
	Name       string `mapstructure:"name"`
	Version    string `mapstructure:"version"` // required client version, empty accepts any
	MaxPlayers int    `mapstructure:"maxPlayers"`

	// Track is a bundled track name, or a .tmx path when TrackDir is set.
	Track    string `mapstructure:"track"`
	TrackDir string `mapstructure:"trackDir"`
	CellSize int    `mapstructure:"cellSize"`

	ReconnectGrace time.Duration `mapstructure:"reconnectGrace"`

	// Master server registration (empty MasterURL disables it)
	MasterURL     string `mapstructure:"masterUrl"`
	PublicAddress string `mapstructure:"publicAddress"`
	Region        string `mapstructure:"region"`
}

// AuthorityConfig controls server-side move validation
type AuthorityConfig struct {
	MaxMoveDeltaTime float64 `mapstructure:"maxMoveDeltaTime"` // seconds; a move's dt must lie in (0, MaxMoveDeltaTime]
	MaxMovesPerTick  int     `mapstructure:"maxMovesPerTick"`  // per pod; the rest waits for the next tick
	InboxLimit       int     `mapstructure:"inboxLimit"`       // queued moves per pod before new ones are dropped
	ForceUpdateTicks int     `mapstructure:"forceUpdateTicks"` // republish an idle pod after this many ticks, 0 never

	// Strict mode also checks the client's claimed position
	Strict      bool    `mapstructure:"strict"`
	ZTolerance  float64 `mapstructure:"zTolerance"`
	XYTolerance float64 `mapstructure:"xyTolerance"`
}

// ReconcileConfig holds client divergence thresholds
type ReconcileConfig struct {
	PositionThreshold float64 `mapstructure:"positionThreshold"` // cm
	RotationThreshold float64 `mapstructure:"rotationThreshold"` // deg
	VelocityThreshold float64 `mapstructure:"velocityThreshold"` // cm/s
	YawRateThreshold  float64 `mapstructure:"yawRateThreshold"`  // deg/s
	MaxPending        int     `mapstructure:"maxPending"`        // 0 = unbounded

	// FixedHeightLatency switches moves to direct height correction while the
	// estimated round trip exceeds it. 0 disables the switch.
	FixedHeightLatency time.Duration `mapstructure:"fixedHeightLatency"`
}

// InputConfig contains pilot input smoothing rates (per second)
type InputConfig struct {
	SteerRampUpRate float64 `mapstructure:"steerRampUpRate"`
	SteerReturnRate float64 `mapstructure:"steerReturnRate"`
	ThrottleRate    float64 `mapstructure:"throttleRate"` // 0 passes throttle through
	Deadzone        float64 `mapstructure:"deadzone"`
}

// InterpConfig controls how observers render remote pods
type InterpConfig struct {
	Ease             string        `mapstructure:"ease"` // linear, outQuad, inOutQuad, outCubic
	MaxExtrapolation time.Duration `mapstructure:"maxExtrapolation"`
}

// BotConfig drives the headless client
type BotConfig struct {
	ServerAddress string        `mapstructure:"serverAddress"`
	MasterURL     string        `mapstructure:"masterUrl"` // when set, ServerAddress is picked from the server list
	PlayerName    string        `mapstructure:"playerName"`
	Pattern       string        `mapstructure:"pattern"` // circuit, slalom, drift
	TickRate      int           `mapstructure:"tickRate"`
	Duration      time.Duration `mapstructure:"duration"` // 0 runs until interrupted
	StatsInterval time.Duration `mapstructure:"statsInterval"`
	AdaptiveSend  bool          `mapstructure:"adaptiveSend"` // batch moves by estimated latency
	DataDir       string        `mapstructure:"dataDir"`      // gdata app name for saved sessions
}

// strictTravelWindow is the round trip, in seconds, the strict position check
// has to absorb: a correction only reaches the owner after the moves it already
// sent, and those still claim the old position.
const strictTravelWindow = 0.25

// CheckTolerance rejects a strict XY tolerance a pod can outrun within
// strictTravelWindow at full boost.
func (a AuthorityConfig) CheckTolerance(t podphysics.Tuning) error {
	if !a.Strict {
		return nil
	}
	boost := math.Max(t.BoostMaxSpeedMultiplier, 1)
	if need := t.MaxSpeed * boost * strictTravelWindow; a.XYTolerance < need {
		return fmt.Errorf("authority.xyTolerance %v is below %v, the distance a boosted pod covers in %vs",
			a.XYTolerance, need, strictTravelWindow)
	}
	if a.ZTolerance <= 0 {
		return fmt.Errorf("authority.zTolerance must be positive, got %v", a.ZTolerance)
	}
	return nil
}

// Defaults returns the stock configuration.
func Defaults() Config {
	return Config{
		LogLevel:  "info",
		LogPretty: true,
		Server: ServerConfig{
			Port:           netconfig.DefaultPort,
			TickRate:       netconfig.DefaultTickRate,
			Name:           "Podracer Server",
			MaxPlayers:     netconfig.DefaultMaxPlayers,
			Track:          "canyon",
			CellSize:       podphysics.DefaultCellSize,
			ReconnectGrace: netconfig.DefaultReconnectGrace,
			Region:         "local",
		},
		Authority: AuthorityConfig{
			MaxMoveDeltaTime: 0.25,
			MaxMovesPerTick:  8,
			InboxLimit:       128,
			ForceUpdateTicks: 30,
			ZTolerance:       1000,
			XYTolerance:      20000,
		},
		Reconcile: ReconcileConfig{
			PositionThreshold: 10,
			RotationThreshold: 1,
			VelocityThreshold: 10,
			YawRateThreshold:  5,

			FixedHeightLatency: 100 * time.Millisecond,
		},
		Input: InputConfig{
			SteerRampUpRate: 15,
			SteerReturnRate: 30,
			Deadzone:        0.05,
		},
		Interp: InterpConfig{
			Ease:             "linear",
			MaxExtrapolation: 100 * time.Millisecond,
		},
		Bot: BotConfig{
			ServerAddress: "localhost:7373",
			PlayerName:    "bot",
			Pattern:       "circuit",
			TickRate:      60,
			StatsInterval: 5 * time.Second,
			DataDir:       "podracer",
		},
		Tuning: podphysics.DefaultTuning(),
	}
}
