package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/automoto/podracer-mp/shared/podphysics"
	"github.com/spf13/viper"
)

// Load builds the configuration from Defaults, an optional config file and
// PODRACER_* environment variables, in increasing order of precedence. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	viper.SetDefault("logLevel", cfg.LogLevel)
	viper.SetDefault("logPretty", cfg.LogPretty)

	viper.SetDefault("server.port", cfg.Server.Port)
	viper.SetDefault("server.tickRate", cfg.Server.TickRate)
	viper.SetDefault("server.name", cfg.Server.Name)
	viper.SetDefault("server.version", cfg.Server.Version)
	viper.SetDefault("server.maxPlayers", cfg.Server.MaxPlayers)
	viper.SetDefault("server.track", cfg.Server.Track)
	viper.SetDefault("server.trackDir", cfg.Server.TrackDir)
	viper.SetDefault("server.reconnectGrace", cfg.Server.ReconnectGrace)
	viper.SetDefault("server.masterUrl", cfg.Server.MasterURL)
	viper.SetDefault("server.publicAddress", cfg.Server.PublicAddress)
	viper.SetDefault("server.region", cfg.Server.Region)
	viper.SetDefault("server.cellSize", cfg.Server.CellSize)

	viper.SetDefault("authority.strict", cfg.Authority.Strict)
	viper.SetDefault("authority.maxMoveDeltaTime", cfg.Authority.MaxMoveDeltaTime)
	viper.SetDefault("authority.maxMovesPerTick", cfg.Authority.MaxMovesPerTick)
	viper.SetDefault("authority.inboxLimit", cfg.Authority.InboxLimit)
	viper.SetDefault("authority.forceUpdateTicks", cfg.Authority.ForceUpdateTicks)
	viper.SetDefault("authority.zTolerance", cfg.Authority.ZTolerance)
	viper.SetDefault("authority.xyTolerance", cfg.Authority.XYTolerance)

	viper.SetDefault("reconcile.positionThreshold", cfg.Reconcile.PositionThreshold)
	viper.SetDefault("reconcile.rotationThreshold", cfg.Reconcile.RotationThreshold)
	viper.SetDefault("reconcile.velocityThreshold", cfg.Reconcile.VelocityThreshold)
	viper.SetDefault("reconcile.yawRateThreshold", cfg.Reconcile.YawRateThreshold)
	viper.SetDefault("reconcile.maxPending", cfg.Reconcile.MaxPending)
	viper.SetDefault("reconcile.fixedHeightLatency", cfg.Reconcile.FixedHeightLatency)

	viper.SetDefault("input.steerRampUpRate", cfg.Input.SteerRampUpRate)
	viper.SetDefault("input.steerReturnRate", cfg.Input.SteerReturnRate)
	viper.SetDefault("input.throttleRate", cfg.Input.ThrottleRate)
	viper.SetDefault("input.deadzone", cfg.Input.Deadzone)

	viper.SetDefault("interp.ease", cfg.Interp.Ease)
	viper.SetDefault("interp.maxExtrapolation", cfg.Interp.MaxExtrapolation)

	viper.SetDefault("bot.serverAddress", cfg.Bot.ServerAddress)
	viper.SetDefault("bot.masterUrl", cfg.Bot.MasterURL)
	viper.SetDefault("bot.playerName", cfg.Bot.PlayerName)
	viper.SetDefault("bot.pattern", cfg.Bot.Pattern)
	viper.SetDefault("bot.tickRate", cfg.Bot.TickRate)
	viper.SetDefault("bot.duration", cfg.Bot.Duration)
	viper.SetDefault("bot.statsInterval", cfg.Bot.StatsInterval)
	viper.SetDefault("bot.adaptiveSend", cfg.Bot.AdaptiveSend)
	viper.SetDefault("bot.dataDir", cfg.Bot.DataDir)

	setStructDefaults("tuning", cfg.Tuning)

	viper.SetEnvPrefix("PODRACER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal over the defaults so keys absent from every source keep their
	// Defaults value, including the tuning block.
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setStructDefaults registers every mapstructure-tagged field of v under
// prefix, so environment variables can reach keys no config file mentions.
// Nested structs get dotted keys. Slices are left to config files.
func setStructDefaults(prefix string, v any) {
	rv := reflect.ValueOf(v)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}
		field := rv.Field(i)
		switch field.Kind() {
		case reflect.Struct:
			setStructDefaults(prefix+"."+key, field.Interface())
		case reflect.Slice, reflect.Map:
		default:
			viper.SetDefault(prefix+"."+key, field.Interface())
		}
	}
}

// Validate rejects settings the simulation cannot run with.
func (c *Config) Validate() error {
	if c.Server.TickRate <= 0 {
		return fmt.Errorf("server.tickRate must be positive, got %d", c.Server.TickRate)
	}
	if c.Server.MaxPlayers <= 0 {
		return fmt.Errorf("server.maxPlayers must be positive, got %d", c.Server.MaxPlayers)
	}
	if c.Authority.MaxMoveDeltaTime <= 0 {
		return fmt.Errorf("authority.maxMoveDeltaTime must be positive, got %v", c.Authority.MaxMoveDeltaTime)
	}
	if c.Authority.MaxMovesPerTick <= 0 {
		return fmt.Errorf("authority.maxMovesPerTick must be positive, got %d", c.Authority.MaxMovesPerTick)
	}
	if c.Tuning.MaxSpeed <= 0 {
		return fmt.Errorf("tuning.maxSpeed must be positive, got %v", c.Tuning.MaxSpeed)
	}
	if len(c.Tuning.Engines) > podphysics.MaxEngines {
		return fmt.Errorf("tuning.engines allows at most %d engines, got %d", podphysics.MaxEngines, len(c.Tuning.Engines))
	}
	if err := c.Authority.CheckTolerance(c.Tuning); err != nil {
		return err
	}
	if c.Bot.TickRate <= 0 {
		return fmt.Errorf("bot.tickRate must be positive, got %d", c.Bot.TickRate)
	}
	if c.Bot.StatsInterval <= 0 {
		return fmt.Errorf("bot.statsInterval must be positive, got %s", c.Bot.StatsInterval)
	}
	return nil
}
