package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvDotEnvFile      = "DOTENV_FILE"
	EnvDataPath        = "DATA_PATH"
	EnvDatasetPath     = "DATASET_PATH"
	EnvModelPath       = "MODEL_PATH"
	EnvStorePath       = "STORE_PATH"
	EnvSamples         = "SAMPLES"
	EnvSeed            = "SEED"
	EnvTestFraction    = "TEST_FRACTION"
	EnvTrees           = "TREES"
	EnvMaxDepth        = "MAX_DEPTH"
	EnvMinSamplesSplit = "MIN_SAMPLES_SPLIT"
	EnvMaxFeatures     = "MAX_FEATURES"
	EnvServerPort      = "SERVER_PORT"
	EnvCacheSize       = "CACHE_SIZE"
	EnvRecordPredicts  = "RECORD_PREDICTIONS"
	EnvWatchArtifact   = "WATCH_ARTIFACT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFile         = "LOG_FILE"
	EnvLogPretty       = "LOG_PRETTY"
	EnvRequestTimeout  = "REQUEST_TIMEOUT"
)

// Configuration defaults
const (
	DefaultDataPath        = "data"
	DefaultDatasetPath     = "data/student_data.csv"
	DefaultModelPath       = "models/student_model.json"
	DefaultSamples         = 500
	DefaultSeed            = 42
	DefaultTestFraction    = 0.2
	DefaultTrees           = 200
	DefaultMaxDepth        = 0
	DefaultMinSamplesSplit = 2
	DefaultMaxFeatures     = 0
	DefaultServerPort      = 8080
	DefaultCacheSize       = 1024
	DefaultLogLevel        = "info"
	DefaultRequestTimeout  = "5s"
)

// Validation limits
const (
	MaxSamples   = 1_000_000
	MaxTrees     = 5000
	MaxCacheSize = 1_000_000
	MaxDepth     = 64
)
