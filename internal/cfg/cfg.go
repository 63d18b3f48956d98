// Package cfg loads and validates the benchmark suite configuration. A YAML
// file (path in CONFIG_FILE) is the primary source, with environment
// variables overriding individual values; without a file, everything comes
// from the environment. Validation happens at load time so malformed
// configuration never surfaces mid-run.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelConfig describes one model entry in the suite.
type ModelConfig struct {
	Name   string             `yaml:"name"`
	Kind   string             `yaml:"kind"` // rw, softmax, linear, remote
	Params map[string]float64 `yaml:"params"`
	// Subjects holds per-subject parameter mappings; a non-empty list makes
	// the runner compose a multi-subject model from this entry.
	Subjects []map[string]float64 `yaml:"subjects"`
}

// Settings is the validated runtime configuration of the suite runner.
type Settings struct {
	SuiteName   string
	PersistPath string
	DataPath    string
	MetricsPort int
	LogLevel    string

	TrainFraction float64
	SplitSeed     int64

	FitMaxIter int
	FitTol     float64

	EnvArms   []float64
	EnvTrials int
	EnvSeed   int64

	Models []ModelConfig

	RemoteURL     string
	RemoteTimeout time.Duration
	StreamURL     string
}

// ConfigFile is the YAML layout.
type ConfigFile struct {
	Suite struct {
		Name        string `yaml:"name"`
		PersistPath string `yaml:"persistPath"`
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
		LogLevel    string `yaml:"logLevel"`
	} `yaml:"suite"`

	Split struct {
		TrainFraction float64 `yaml:"trainFraction"`
		Seed          int64   `yaml:"seed"`
	} `yaml:"split"`

	Fit struct {
		MaxIter int     `yaml:"maxIter"`
		Tol     float64 `yaml:"tol"`
	} `yaml:"fit"`

	Env struct {
		Arms   []float64 `yaml:"arms"`
		Trials int       `yaml:"trials"`
		Seed   int64     `yaml:"seed"`
	} `yaml:"env"`

	Models []ModelConfig `yaml:"models"`

	Remote struct {
		BaseURL string `yaml:"baseURL"`
		Timeout string `yaml:"timeout"`
	} `yaml:"remote"`

	Stream struct {
		URL string `yaml:"url"`
	} `yaml:"stream"`
}

// Load reads configuration from the YAML file named by CONFIG_FILE, falling
// back to environment variables alone.
func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	remoteTimeout, err := time.ParseDuration(config.Remote.Timeout)
	if err != nil {
		remoteTimeout = 5 * time.Second
	}

	settings := Settings{
		SuiteName:     getEnvOrDefault("SUITE_NAME", config.Suite.Name),
		PersistPath:   getEnvOrDefault("PERSIST_PATH", config.Suite.PersistPath),
		DataPath:      getEnvOrDefault("DATA_PATH", config.Suite.DataPath),
		MetricsPort:   getIntFromEnvOrConfig("METRICS_PORT", config.Suite.MetricsPort),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", config.Suite.LogLevel),
		TrainFraction: getFloatFromEnvOrConfig("TRAIN_FRACTION", config.Split.TrainFraction),
		SplitSeed:     config.Split.Seed,
		FitMaxIter:    getIntFromEnvOrConfig("FIT_MAX_ITER", config.Fit.MaxIter),
		FitTol:        getFloatFromEnvOrConfig("FIT_TOL", config.Fit.Tol),
		EnvArms:       config.Env.Arms,
		EnvTrials:     getIntFromEnvOrConfig("ENV_TRIALS", config.Env.Trials),
		EnvSeed:       config.Env.Seed,
		Models:        config.Models,
		RemoteURL:     getEnvOrDefault("REMOTE_URL", config.Remote.BaseURL),
		RemoteTimeout: remoteTimeout,
		StreamURL:     getEnvOrDefault("STREAM_URL", config.Stream.URL),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	maxIter, err := getIntRequired("FIT_MAX_ITER")
	if err != nil {
		return Settings{}, err
	}
	tol, err := getFloatRequired("FIT_TOL")
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		SuiteName:     getEnvOrDefault("SUITE_NAME", "cognibench"),
		PersistPath:   os.Getenv("PERSIST_PATH"), // optional
		DataPath:      os.Getenv("DATA_PATH"),    // optional
		MetricsPort:   getIntOrDefault("METRICS_PORT", 8080),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		TrainFraction: getFloatOrDefault("TRAIN_FRACTION", 0.75),
		SplitSeed:     int64(getIntOrDefault("SPLIT_SEED", 0)),
		FitMaxIter:    maxIter,
		FitTol:        tol,
		EnvArms:       []float64{0.2, 0.8},
		EnvTrials:     getIntOrDefault("ENV_TRIALS", 100),
		EnvSeed:       int64(getIntOrDefault("ENV_SEED", 0)),
		RemoteURL:     os.Getenv("REMOTE_URL"),
		RemoteTimeout: getDurationOrDefault("REMOTE_TIMEOUT", 5*time.Second),
		StreamURL:     os.Getenv("STREAM_URL"),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntRequired(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("required environment variable %s is missing", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return i, nil
}

func getFloatRequired(key string) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("required environment variable %s is missing", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return f, nil
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs comprehensive validation of configuration values.
func validateSettings(settings *Settings) error {
	if settings.FitMaxIter <= 0 {
		return fmt.Errorf("fit iteration budget is required and must be positive, got %d", settings.FitMaxIter)
	}
	if settings.FitTol <= 0 {
		return fmt.Errorf("fit tolerance is required and must be positive, got %v", settings.FitTol)
	}

	if settings.TrainFraction <= 0 || settings.TrainFraction >= 1 {
		return fmt.Errorf("train fraction must be strictly between 0 and 1, got %v", settings.TrainFraction)
	}

	if settings.MetricsPort != 0 && (settings.MetricsPort < 1024 || settings.MetricsPort > 65535) {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}

	if settings.EnvTrials <= 0 {
		return fmt.Errorf("environment trial count must be positive, got %d", settings.EnvTrials)
	}
	for i, p := range settings.EnvArms {
		if p < 0 || p > 1 {
			return fmt.Errorf("arm %d payout probability must be between 0 and 1, got %v", i, p)
		}
	}

	if settings.RemoteTimeout < time.Second || settings.RemoteTimeout > time.Minute {
		return fmt.Errorf("remote timeout must be between 1s and 1m, got %v", settings.RemoteTimeout)
	}

	seen := make(map[string]bool, len(settings.Models))
	for _, mc := range settings.Models {
		if mc.Name == "" {
			return fmt.Errorf("every model entry needs a name")
		}
		if seen[mc.Name] {
			return fmt.Errorf("duplicate model name %q", mc.Name)
		}
		seen[mc.Name] = true
		switch mc.Kind {
		case "rw", "softmax", "linear":
		case "remote":
			if settings.RemoteURL == "" {
				return fmt.Errorf("model %s: remote models need remote.baseURL", mc.Name)
			}
		default:
			return fmt.Errorf("model %s: unknown kind %q", mc.Name, mc.Kind)
		}
	}

	return nil
}
