package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Paths     PathsConfig     `mapstructure:"paths"`
	Training  TrainingConfig  `mapstructure:"training"`
	Canvas    CanvasConfig    `mapstructure:"canvas"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Runtime flags, set from the command line rather than the config file.
	BuildDatasetOnStart bool `mapstructure:"-"`
	TrainOnStart        bool `mapstructure:"-"`
	TrainOnly           bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type PathsConfig struct {
	RawDataDir      string `mapstructure:"raw_data_dir"`
	TrainingDataDir string `mapstructure:"training_data_dir"`
	ModelDir        string `mapstructure:"model_dir"`
	LogDir          string `mapstructure:"log_dir"`
}

type TrainingConfig struct {
	// DatasetCandidates are tried in order against TrainingDataDir; the
	// first existing file becomes the training input.
	DatasetCandidates []string `mapstructure:"dataset_candidates"`
	Seed              int64    `mapstructure:"seed"`
	Estimators        int      `mapstructure:"estimators"`
	MaxDepth          int      `mapstructure:"max_depth"`
}

type CanvasConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("STUDYPLANNER")
	viper.AutomaticEnv()

	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Paths
	viper.BindEnv("paths.raw_data_dir", "RAW_DATA_DIR")
	viper.BindEnv("paths.training_data_dir", "TRAINING_DATA_DIR")
	viper.BindEnv("paths.model_dir", "MODEL_DIR")
	viper.BindEnv("paths.log_dir", "LOG_DIR")

	// Training
	viper.BindEnv("training.seed", "RANDOM_SEED")
	viper.BindEnv("training.estimators", "RF_N_ESTIMATORS")
	viper.BindEnv("training.max_depth", "RF_MAX_DEPTH")

	// Canvas
	viper.BindEnv("canvas.base_url", "CANVAS_BASE_URL")
	viper.BindEnv("canvas.token", "CANVAS_API_TOKEN")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Paths.RawDataDir == "" {
		cfg.Paths.RawDataDir = "raw_data"
	}
	if cfg.Paths.TrainingDataDir == "" {
		cfg.Paths.TrainingDataDir = "training_data"
	}
	if cfg.Paths.ModelDir == "" {
		cfg.Paths.ModelDir = "models"
	}
	if cfg.Paths.LogDir == "" {
		cfg.Paths.LogDir = "logs"
	}
	if len(cfg.Training.DatasetCandidates) == 0 {
		cfg.Training.DatasetCandidates = []string{
			"oulad_training.csv",
			"cleaned_students_performance.csv",
			"combined_assignments.csv",
		}
	}
	if cfg.Training.Seed == 0 {
		cfg.Training.Seed = 42
	}
	if cfg.Training.Estimators == 0 {
		cfg.Training.Estimators = 200
	}
	if cfg.Training.Estimators < 0 {
		return nil, fmt.Errorf("training.estimators must be positive, got %d", cfg.Training.Estimators)
	}
	if cfg.Training.MaxDepth < 0 {
		return nil, fmt.Errorf("training.max_depth must be zero or positive, got %d", cfg.Training.MaxDepth)
	}

	for _, dir := range []string{cfg.Paths.TrainingDataDir, cfg.Paths.ModelDir, cfg.Paths.LogDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			os.MkdirAll(dir, 0755)
		}
	}

	return &cfg, nil
}

// DatasetPaths resolves the candidate file names against the training data
// directory, in priority order.
func (c *Config) DatasetPaths() []string {
	paths := make([]string, len(c.Training.DatasetCandidates))
	for i, name := range c.Training.DatasetCandidates {
		paths[i] = filepath.Join(c.Paths.TrainingDataDir, name)
	}
	return paths
}
