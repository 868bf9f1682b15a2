package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// TMDB (movies and TV)
	TMDBAPIKey  string
	TMDBBaseURL string
	WatchRegion string // ISO 3166-1 region for streaming availability (default: US)

	// OMDB (secondary ratings, optional)
	OMDBAPIKey  string
	OMDBBaseURL string

	// Jikan (anime, keyless)
	JikanBaseURL string

	// Open Library (books, keyless)
	OpenLibraryBaseURL string

	// RAWG (games)
	RAWGAPIKey  string
	RAWGBaseURL string

	// Detection
	DetectionThreshold   int  // minimum confidence before a verdict beats "unknown"
	ClassifierConcurrent bool // run the per-type classifiers in parallel

	// Queue
	QueueMaxSize   int
	QueueRetention time.Duration
	MaxAttempts    int

	// Worker pool
	PoolMinWorkers  int
	PoolMaxWorkers  int
	PoolIdleTimeout time.Duration

	// Rate limits, requests per second per provider
	TMDBRateLimit        float64
	OMDBRateLimit        float64
	JikanRateLimit       float64
	OpenLibraryRateLimit float64
	RAWGRateLimit        float64

	// Enrichment cache
	CacheTTL time.Duration

	// New-content scan
	ScanCron   string
	ScanWindow time.Duration
	Retention  time.Duration // task history retention

	// Coordinator
	WaitTimeout time.Duration

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/kandarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	viper.SetDefault("WATCH_REGION", "US")
	viper.SetDefault("OMDB_BASE_URL", "https://www.omdbapi.com")
	viper.SetDefault("JIKAN_BASE_URL", "https://api.jikan.moe/v4")
	viper.SetDefault("OPENLIBRARY_BASE_URL", "https://openlibrary.org")
	viper.SetDefault("RAWG_BASE_URL", "https://api.rawg.io/api")
	viper.SetDefault("DETECTION_THRESHOLD", 25)
	viper.SetDefault("CLASSIFIER_CONCURRENT", true)
	viper.SetDefault("QUEUE_MAX_SIZE", 500)
	viper.SetDefault("QUEUE_RETENTION_MINUTES", 30)
	viper.SetDefault("MAX_ATTEMPTS", 3)
	viper.SetDefault("POOL_MIN_WORKERS", 2)
	viper.SetDefault("POOL_MAX_WORKERS", 4)
	viper.SetDefault("POOL_IDLE_TIMEOUT_SECONDS", 30)
	viper.SetDefault("TMDB_RATE_LIMIT", 4.0)
	viper.SetDefault("OMDB_RATE_LIMIT", 1.0)
	viper.SetDefault("JIKAN_RATE_LIMIT", 1.0)
	viper.SetDefault("OPENLIBRARY_RATE_LIMIT", 1.0)
	viper.SetDefault("RAWG_RATE_LIMIT", 2.0)
	viper.SetDefault("CACHE_TTL_MINUTES", 60)
	viper.SetDefault("SCAN_CRON", "0 */6 * * *")
	viper.SetDefault("SCAN_WINDOW_HOURS", 24)
	viper.SetDefault("RETENTION_DAYS", 7)
	viper.SetDefault("WAIT_TIMEOUT_SECONDS", 60)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "kandarr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// TMDB
		TMDBAPIKey:  viper.GetString("TMDB_API_KEY"),
		TMDBBaseURL: viper.GetString("TMDB_BASE_URL"),
		WatchRegion: viper.GetString("WATCH_REGION"),

		// OMDB
		OMDBAPIKey:  viper.GetString("OMDB_API_KEY"),
		OMDBBaseURL: viper.GetString("OMDB_BASE_URL"),

		// Jikan
		JikanBaseURL: viper.GetString("JIKAN_BASE_URL"),

		// Open Library
		OpenLibraryBaseURL: viper.GetString("OPENLIBRARY_BASE_URL"),

		// RAWG
		RAWGAPIKey:  viper.GetString("RAWG_API_KEY"),
		RAWGBaseURL: viper.GetString("RAWG_BASE_URL"),

		// Detection
		DetectionThreshold:   viper.GetInt("DETECTION_THRESHOLD"),
		ClassifierConcurrent: viper.GetBool("CLASSIFIER_CONCURRENT"),

		// Queue
		QueueMaxSize:   viper.GetInt("QUEUE_MAX_SIZE"),
		QueueRetention: time.Duration(viper.GetInt("QUEUE_RETENTION_MINUTES")) * time.Minute,
		MaxAttempts:    viper.GetInt("MAX_ATTEMPTS"),

		// Worker pool
		PoolMinWorkers:  viper.GetInt("POOL_MIN_WORKERS"),
		PoolMaxWorkers:  viper.GetInt("POOL_MAX_WORKERS"),
		PoolIdleTimeout: time.Duration(viper.GetInt("POOL_IDLE_TIMEOUT_SECONDS")) * time.Second,

		// Rate limits
		TMDBRateLimit:        viper.GetFloat64("TMDB_RATE_LIMIT"),
		OMDBRateLimit:        viper.GetFloat64("OMDB_RATE_LIMIT"),
		JikanRateLimit:       viper.GetFloat64("JIKAN_RATE_LIMIT"),
		OpenLibraryRateLimit: viper.GetFloat64("OPENLIBRARY_RATE_LIMIT"),
		RAWGRateLimit:        viper.GetFloat64("RAWG_RATE_LIMIT"),

		// Enrichment cache
		CacheTTL: time.Duration(viper.GetInt("CACHE_TTL_MINUTES")) * time.Minute,

		// New-content scan
		ScanCron:   viper.GetString("SCAN_CRON"),
		ScanWindow: time.Duration(viper.GetInt("SCAN_WINDOW_HOURS")) * time.Hour,
		Retention:  time.Duration(viper.GetInt("RETENTION_DAYS")) * 24 * time.Hour,

		// Coordinator
		WaitTimeout: time.Duration(viper.GetInt("WAIT_TIMEOUT_SECONDS")) * time.Second,

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "kandarr.db"),

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields. OMDB stays optional, Jikan and Open
	// Library need no key.
	if config.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}
	if config.RAWGAPIKey == "" {
		return nil, fmt.Errorf("RAWG_API_KEY is required")
	}

	return config, nil
}
