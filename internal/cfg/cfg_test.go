package cfg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/krnkaavya03/StuPred/internal/ml"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DatasetPath != "data/student_data.csv" {
					t.Errorf("expected default DatasetPath, got %s", settings.DatasetPath)
				}
				if settings.ModelPath != "models/student_model.json" {
					t.Errorf("expected default ModelPath, got %s", settings.ModelPath)
				}
				if settings.StorePath != "data" {
					t.Errorf("expected StorePath to follow DataPath, got %s", settings.StorePath)
				}
				if settings.Samples != 500 {
					t.Errorf("expected default Samples 500, got %d", settings.Samples)
				}
				if settings.Train != ml.DefaultTrainConfig() {
					t.Errorf("expected default training config, got %+v", settings.Train)
				}
				if settings.ServerPort != 8080 {
					t.Errorf("expected default ServerPort 8080, got %d", settings.ServerPort)
				}
				if !settings.RecordPredictions {
					t.Error("expected RecordPredictions to default to true")
				}
				if settings.RequestTimeout != 5*time.Second {
					t.Errorf("expected default RequestTimeout 5s, got %v", settings.RequestTimeout)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"DATA_PATH":          "/tmp/stupred",
				"SAMPLES":            "1000",
				"SEED":               "7",
				"TEST_FRACTION":      "0.25",
				"TREES":              "50",
				"MAX_DEPTH":          "8",
				"MAX_FEATURES":       "3",
				"SERVER_PORT":        "9090",
				"CACHE_SIZE":         "0",
				"RECORD_PREDICTIONS": "false",
				"WATCH_ARTIFACT":     "true",
				"LOG_LEVEL":          "debug",
				"REQUEST_TIMEOUT":    "2s",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.StorePath != "/tmp/stupred" {
					t.Errorf("expected StorePath /tmp/stupred, got %s", settings.StorePath)
				}
				if settings.Samples != 1000 {
					t.Errorf("expected Samples 1000, got %d", settings.Samples)
				}
				want := ml.TrainConfig{TestFraction: 0.25, Seed: 7, Trees: 50, MaxDepth: 8, MinSamplesSplit: 2, MaxFeatures: 3}
				if settings.Train != want {
					t.Errorf("expected training config %+v, got %+v", want, settings.Train)
				}
				if settings.ServerPort != 9090 {
					t.Errorf("expected ServerPort 9090, got %d", settings.ServerPort)
				}
				if settings.CacheSize != 0 {
					t.Errorf("expected CacheSize 0, got %d", settings.CacheSize)
				}
				if settings.RecordPredictions {
					t.Error("expected RecordPredictions to be false")
				}
				if !settings.WatchArtifact {
					t.Error("expected WatchArtifact to be true")
				}
				if settings.RequestTimeout != 2*time.Second {
					t.Errorf("expected RequestTimeout 2s, got %v", settings.RequestTimeout)
				}
			},
		},
		{
			name:    "invalid test fraction",
			envVars: map[string]string{"TEST_FRACTION": "1.5"},
			wantErr: true,
		},
		{
			name:    "too many trees",
			envVars: map[string]string{"TREES": "100000"},
			wantErr: true,
		},
		{
			name:    "negative samples",
			envVars: map[string]string{"SAMPLES": "-1"},
			wantErr: true,
		},
		{
			name:    "privileged port",
			envVars: map[string]string{"SERVER_PORT": "80"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			envVars: map[string]string{"LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "negative cache size",
			envVars: map[string]string{"CACHE_SIZE": "-5"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear all environment variables first
			clearTestEnv(t)

			// Set test environment variables
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromEnv_InvalidTrainingConfigIsTyped(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("MIN_SAMPLES_SPLIT", "1")

	_, err := loadFromEnv()
	if !errors.Is(err, ml.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
data:
  dataPath: "/custom/data"
  datasetPath: "/custom/data/students.csv"
  samples: 800

training:
  seed: 0
  testFraction: 0.3
  trees: 120
  maxDepth: 12

model:
  path: "/custom/models/forest.json"

server:
  port: 9090
  cacheSize: 0
  recordPredictions: false
  watchArtifact: true
  requestTimeout: "10s"

system:
  logLevel: "warn"
  logFile: "/var/log/stupred.log"
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DatasetPath != "/custom/data/students.csv" {
					t.Errorf("expected DatasetPath from YAML, got %s", settings.DatasetPath)
				}
				if settings.StorePath != "/custom/data" {
					t.Errorf("expected StorePath to follow dataPath, got %s", settings.StorePath)
				}
				if settings.Samples != 800 {
					t.Errorf("expected Samples 800, got %d", settings.Samples)
				}
				if settings.Train.Seed != 0 {
					t.Errorf("expected explicit seed 0, got %d", settings.Train.Seed)
				}
				if settings.Train.TestFraction != 0.3 {
					t.Errorf("expected TestFraction 0.3, got %f", settings.Train.TestFraction)
				}
				if settings.Train.Trees != 120 {
					t.Errorf("expected Trees 120, got %d", settings.Train.Trees)
				}
				if settings.Train.MaxDepth != 12 {
					t.Errorf("expected MaxDepth 12, got %d", settings.Train.MaxDepth)
				}
				if settings.Train.MinSamplesSplit != 2 {
					t.Errorf("expected default MinSamplesSplit 2, got %d", settings.Train.MinSamplesSplit)
				}
				if settings.ModelPath != "/custom/models/forest.json" {
					t.Errorf("expected ModelPath from YAML, got %s", settings.ModelPath)
				}
				if settings.ServerPort != 9090 {
					t.Errorf("expected ServerPort 9090, got %d", settings.ServerPort)
				}
				if settings.CacheSize != 0 {
					t.Errorf("expected explicit CacheSize 0, got %d", settings.CacheSize)
				}
				if settings.RecordPredictions {
					t.Error("expected RecordPredictions false")
				}
				if !settings.WatchArtifact {
					t.Error("expected WatchArtifact true")
				}
				if settings.RequestTimeout != 10*time.Second {
					t.Errorf("expected RequestTimeout 10s, got %v", settings.RequestTimeout)
				}
				if settings.LogLevel != "warn" {
					t.Errorf("expected LogLevel warn, got %s", settings.LogLevel)
				}
				if settings.LogFile != "/var/log/stupred.log" {
					t.Errorf("expected LogFile from YAML, got %s", settings.LogFile)
				}
			},
		},
		{
			name: "YAML with env overrides",
			yamlContent: `
data:
  samples: 800
training:
  trees: 120
model:
  path: "yaml.json"
`,
			envOverrides: map[string]string{
				"TREES":      "30",
				"MODEL_PATH": "env.json",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Train.Trees != 30 {
					t.Errorf("expected env override Trees 30, got %d", settings.Train.Trees)
				}
				if settings.ModelPath != "env.json" {
					t.Errorf("expected env override ModelPath, got %s", settings.ModelPath)
				}
				if settings.Samples != 800 {
					t.Errorf("expected YAML Samples 800, got %d", settings.Samples)
				}
				if settings.Train.Seed != 42 {
					t.Errorf("expected default seed 42, got %d", settings.Train.Seed)
				}
				if settings.CacheSize != 1024 {
					t.Errorf("expected default CacheSize 1024, got %d", settings.CacheSize)
				}
			},
		},
		{
			name: "YAML with invalid values",
			yamlContent: `
training:
  testFraction: 2
`,
			wantErr: true,
		},
		{
			name:        "invalid YAML",
			yamlContent: `invalid: yaml: content: [`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			clearTestEnv(t)

			// Set environment overrides
			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			// Create temporary YAML file
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644)
			if err != nil {
				t.Fatalf("failed to write test config file: %v", err)
			}

			settings, err := loadFromYAML(configPath)

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		yamlContent string
		envVars     map[string]string
		wantErr     bool
		validate    func(t *testing.T, settings Settings)
	}{
		{
			name: "load from env when no config file",
			envVars: map[string]string{
				"SAMPLES": "42",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Samples != 42 {
					t.Errorf("expected Samples 42, got %d", settings.Samples)
				}
			},
		},
		{
			name:       "load from YAML when config file specified",
			configFile: "config.yaml",
			yamlContent: `
server:
  port: 9191
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.ServerPort != 9191 {
					t.Errorf("expected ServerPort 9191, got %d", settings.ServerPort)
				}
			},
		},
		{
			name:       "missing config file",
			configFile: "missing.yaml",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			clearTestEnv(t)

			// Set environment variables
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			// Point CONFIG_FILE at the test file, written only when content is given
			if tt.configFile != "" {
				tmpDir := t.TempDir()
				configPath := filepath.Join(tmpDir, tt.configFile)
				if tt.yamlContent != "" {
					err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644)
					if err != nil {
						t.Fatalf("failed to write test config file: %v", err)
					}
				}
				t.Setenv("CONFIG_FILE", configPath)
			}

			settings, err := Load()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearTestEnv(t)

	dotenv := filepath.Join(t.TempDir(), ".env")
	content := "TREES=25\nSERVER_PORT=9292\n"
	if err := os.WriteFile(dotenv, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("DOTENV_FILE", dotenv)
	// Variables already in the environment win over the file.
	t.Setenv("SERVER_PORT", "9393")
	t.Cleanup(func() { os.Unsetenv("TREES") })

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Train.Trees != 25 {
		t.Errorf("expected Trees 25 from .env, got %d", settings.Train.Trees)
	}
	if settings.ServerPort != 9393 {
		t.Errorf("expected environment ServerPort 9393, got %d", settings.ServerPort)
	}
}

// clearTestEnv clears potentially conflicting environment variables
func clearTestEnv(t *testing.T) {
	envVars := []string{
		"DATA_PATH", "DATASET_PATH", "MODEL_PATH", "STORE_PATH", "SAMPLES", "SEED",
		"TEST_FRACTION", "TREES", "MAX_DEPTH", "MIN_SAMPLES_SPLIT", "MAX_FEATURES",
		"SERVER_PORT", "CACHE_SIZE", "RECORD_PREDICTIONS", "WATCH_ARTIFACT",
		"LOG_LEVEL", "LOG_FILE", "LOG_PRETTY", "REQUEST_TIMEOUT", "CONFIG_FILE",
	}

	for _, env := range envVars {
		if val := os.Getenv(env); val != "" {
			t.Setenv(env, "")
		}
	}

	// Keep a stray .env in the working directory out of the tests.
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}
