package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Surfin.System.Logging
}

// Module provides the configuration and its derived pieces to Fx.
// EmbeddedConfig must be supplied by the caller.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewOsEnvironmentExpander,
			fx.As(new(EnvironmentExpander)),
		),
	),
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
)
