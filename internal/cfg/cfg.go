// Package cfg loads runtime settings from a YAML file, the environment and an
// optional .env file.
package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/krnkaavya03/StuPred/internal/common"
	"github.com/krnkaavya03/StuPred/internal/ml"
)

type Settings struct {
	DataPath          string
	DatasetPath       string
	ModelPath         string
	StorePath         string
	Samples           int
	Train             ml.TrainConfig
	ServerPort        int
	CacheSize         int
	RecordPredictions bool
	WatchArtifact     bool
	RequestTimeout    time.Duration
	LogLevel          string
	LogFile           string
	LogPretty         bool
}

type ConfigFile struct {
	Data struct {
		DataPath    string `yaml:"dataPath"`
		DatasetPath string `yaml:"datasetPath"`
		Samples     int    `yaml:"samples"`
	} `yaml:"data"`

	Training struct {
		Seed            *int64  `yaml:"seed"`
		TestFraction    float64 `yaml:"testFraction"`
		Trees           int     `yaml:"trees"`
		MaxDepth        int     `yaml:"maxDepth"`
		MinSamplesSplit int     `yaml:"minSamplesSplit"`
		MaxFeatures     int     `yaml:"maxFeatures"`
	} `yaml:"training"`

	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`

	Server struct {
		Port              int    `yaml:"port"`
		CacheSize         *int   `yaml:"cacheSize"`
		RecordPredictions *bool  `yaml:"recordPredictions"`
		WatchArtifact     bool   `yaml:"watchArtifact"`
		RequestTimeout    string `yaml:"requestTimeout"`
	} `yaml:"server"`

	System struct {
		StorePath string `yaml:"storePath"`
		LogLevel  string `yaml:"logLevel"`
		LogFile   string `yaml:"logFile"`
		LogPretty bool   `yaml:"logPretty"`
	} `yaml:"system"`
}

// Load reads a .env file if present, then CONFIG_FILE when set, and lets
// environment variables override either source.
func Load() (Settings, error) {
	if err := loadDotEnv(); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv populates unset variables from DOTENV_FILE or ./.env. Values
// already in the environment win.
func loadDotEnv() error {
	path := getEnvOrDefault(common.EnvDotEnvFile, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
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

	timeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		timeout, _ = time.ParseDuration(common.DefaultRequestTimeout)
	}

	seed := int64(common.DefaultSeed)
	if config.Training.Seed != nil {
		seed = *config.Training.Seed
	}
	cacheSize := common.DefaultCacheSize
	if config.Server.CacheSize != nil {
		cacheSize = *config.Server.CacheSize
	}
	record := true
	if config.Server.RecordPredictions != nil {
		record = *config.Server.RecordPredictions
	}

	dataPath := getEnvOrDefault(common.EnvDataPath, orString(config.Data.DataPath, common.DefaultDataPath))

	settings := Settings{
		DataPath:    dataPath,
		DatasetPath: getEnvOrDefault(common.EnvDatasetPath, orString(config.Data.DatasetPath, common.DefaultDatasetPath)),
		ModelPath:   getEnvOrDefault(common.EnvModelPath, orString(config.Model.Path, common.DefaultModelPath)),
		StorePath:   getEnvOrDefault(common.EnvStorePath, orString(config.System.StorePath, dataPath)),
		Samples:     getIntFromEnvOrConfig(common.EnvSamples, config.Data.Samples, common.DefaultSamples),
		Train: ml.TrainConfig{
			TestFraction:    getFloatFromEnvOrConfig(common.EnvTestFraction, config.Training.TestFraction, common.DefaultTestFraction),
			Seed:            getInt64OrDefault(common.EnvSeed, seed),
			Trees:           getIntFromEnvOrConfig(common.EnvTrees, config.Training.Trees, common.DefaultTrees),
			MaxDepth:        getIntFromEnvOrConfig(common.EnvMaxDepth, config.Training.MaxDepth, common.DefaultMaxDepth),
			MinSamplesSplit: getIntFromEnvOrConfig(common.EnvMinSamplesSplit, config.Training.MinSamplesSplit, common.DefaultMinSamplesSplit),
			MaxFeatures:     getIntFromEnvOrConfig(common.EnvMaxFeatures, config.Training.MaxFeatures, common.DefaultMaxFeatures),
		},
		ServerPort:        getIntFromEnvOrConfig(common.EnvServerPort, config.Server.Port, common.DefaultServerPort),
		CacheSize:         getIntOrDefault(common.EnvCacheSize, cacheSize),
		RecordPredictions: getBoolOrDefault(common.EnvRecordPredicts, record),
		WatchArtifact:     getBoolOrDefault(common.EnvWatchArtifact, config.Server.WatchArtifact),
		RequestTimeout:    getDurationOrDefault(common.EnvRequestTimeout, timeout),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
		LogFile:           getEnvOrDefault(common.EnvLogFile, config.System.LogFile),
		LogPretty:         getBoolOrDefault(common.EnvLogPretty, config.System.LogPretty),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	timeout, _ := time.ParseDuration(common.DefaultRequestTimeout)
	dataPath := getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath)

	settings := Settings{
		DataPath:    dataPath,
		DatasetPath: getEnvOrDefault(common.EnvDatasetPath, common.DefaultDatasetPath),
		ModelPath:   getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		StorePath:   getEnvOrDefault(common.EnvStorePath, dataPath),
		Samples:     getIntOrDefault(common.EnvSamples, common.DefaultSamples),
		Train: ml.TrainConfig{
			TestFraction:    getFloatOrDefault(common.EnvTestFraction, common.DefaultTestFraction),
			Seed:            getInt64OrDefault(common.EnvSeed, common.DefaultSeed),
			Trees:           getIntOrDefault(common.EnvTrees, common.DefaultTrees),
			MaxDepth:        getIntOrDefault(common.EnvMaxDepth, common.DefaultMaxDepth),
			MinSamplesSplit: getIntOrDefault(common.EnvMinSamplesSplit, common.DefaultMinSamplesSplit),
			MaxFeatures:     getIntOrDefault(common.EnvMaxFeatures, common.DefaultMaxFeatures),
		},
		ServerPort:        getIntOrDefault(common.EnvServerPort, common.DefaultServerPort),
		CacheSize:         getIntOrDefault(common.EnvCacheSize, common.DefaultCacheSize),
		RecordPredictions: getBoolOrDefault(common.EnvRecordPredicts, true),
		WatchArtifact:     getBoolOrDefault(common.EnvWatchArtifact, false),
		RequestTimeout:    getDurationOrDefault(common.EnvRequestTimeout, timeout),
		LogLevel:          getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFile:           os.Getenv(common.EnvLogFile), // optional
		LogPretty:         getBoolOrDefault(common.EnvLogPretty, false),
	}

	// Validate configuration
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

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
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

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate paths
	if settings.DatasetPath == "" {
		return fmt.Errorf("dataset path cannot be empty")
	}
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.StorePath == "" {
		return fmt.Errorf("store path cannot be empty")
	}

	// Validate dataset size
	if settings.Samples < 0 || settings.Samples > common.MaxSamples {
		return fmt.Errorf("samples must be between 0 and %d, got %d", common.MaxSamples, settings.Samples)
	}

	// Validate training parameters
	if err := settings.Train.Validate(); err != nil {
		return err
	}
	if settings.Train.Trees > common.MaxTrees {
		return fmt.Errorf("trees must be at most %d, got %d", common.MaxTrees, settings.Train.Trees)
	}
	if settings.Train.MaxDepth > common.MaxDepth {
		return fmt.Errorf("max depth must be at most %d, got %d", common.MaxDepth, settings.Train.MaxDepth)
	}

	// Validate server parameters
	if settings.ServerPort < 1024 || settings.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1024 and 65535, got %d", settings.ServerPort)
	}
	if settings.CacheSize < 0 || settings.CacheSize > common.MaxCacheSize {
		return fmt.Errorf("cache size must be between 0 and %d, got %d", common.MaxCacheSize, settings.CacheSize)
	}
	if settings.RequestTimeout < 100*time.Millisecond || settings.RequestTimeout > time.Minute {
		return fmt.Errorf("request timeout must be between 100ms and 1m, got %v", settings.RequestTimeout)
	}

	// Validate log level
	switch strings.ToLower(settings.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log level %q", settings.LogLevel)
	}

	return nil
}
