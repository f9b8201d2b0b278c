// Package config handles tool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Assets   AssetsConfig   `yaml:"assets"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PlaybackConfig holds animation playback settings.
type PlaybackConfig struct {
	Speed       float64 `yaml:"speed"`        // Playback speed multiplier
	Loop        string  `yaml:"loop"`         // once, wrap or pingpong
	TickRate    int     `yaml:"tick_rate"`    // Simulation steps per second
	MaxDuration float64 `yaml:"max_duration"` // Seconds to simulate, 0 = one clip length
}

// AssetsConfig holds asset file paths.
type AssetsConfig struct {
	SearchPaths []string `yaml:"search_paths"` // Directories searched for model files
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			Speed:       1.0,
			Loop:        "wrap",
			TickRate:    60,
			MaxDuration: 0,
		},
		Assets: AssetsConfig{
			SearchPaths: []string{"."},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
