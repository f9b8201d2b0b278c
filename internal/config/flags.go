package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagSpeed    = flag.Float64("speed", 0, "Playback speed multiplier")
	flagLoop     = flag.String("loop", "", "Loop mode: once, wrap or pingpong")
	flagTickRate = flag.Int("tickrate", 0, "Simulation steps per second")
	flagLogFile  = flag.String("logfile", "", "Write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSpeed > 0 {
		cfg.Playback.Speed = *flagSpeed
	}
	if *flagLoop != "" {
		cfg.Playback.Loop = *flagLoop
	}
	if *flagTickRate > 0 {
		cfg.Playback.TickRate = *flagTickRate
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
