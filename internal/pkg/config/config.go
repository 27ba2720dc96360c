package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Environment string `mapstructure:"ENV"`

	// Server Configuration
	ServerHost string `mapstructure:"SERVER_HOST"`
	ServerPort string `mapstructure:"SERVER_PORT"`

	// Database Configuration
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	// Redis Configuration
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     int    `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Worker Configuration
	WorkerConcurrency int `mapstructure:"WORKER_CONCURRENCY"`
	WorkerMaxRetries  int `mapstructure:"WORKER_MAX_RETRIES"`

	// Import Configuration
	ImportChunkSize int    `mapstructure:"IMPORT_CHUNK_SIZE"`
	MaxFileSizeMB   int64  `mapstructure:"MAX_FILE_SIZE_MB"`
	StorageBasePath string `mapstructure:"STORAGE_BASE_PATH"`

	// Admin bootstrap (basic auth)
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	config := &Config{}

	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8080")

	// Database defaults
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "excelimport")
	viper.SetDefault("DB_SSLMODE", "disable")

	// Redis defaults
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)

	// Worker defaults
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("WORKER_MAX_RETRIES", 3)

	// Import defaults
	viper.SetDefault("IMPORT_CHUNK_SIZE", 1000)
	viper.SetDefault("MAX_FILE_SIZE_MB", 100)
	viper.SetDefault("STORAGE_BASE_PATH", "/tmp/excel-import")

	// Admin defaults (development only; override in production)
	viper.SetDefault("ADMIN_USERNAME", "admin")

	viper.AutomaticEnv()

	config.Environment = viper.GetString("ENV")
	config.ServerHost = viper.GetString("SERVER_HOST")
	config.ServerPort = viper.GetString("SERVER_PORT")

	config.DBHost = viper.GetString("DB_HOST")
	config.DBPort = viper.GetString("DB_PORT")
	config.DBUser = viper.GetString("DB_USER")
	config.DBPassword = viper.GetString("DB_PASSWORD")
	config.DBName = viper.GetString("DB_NAME")
	config.DBSSLMode = viper.GetString("DB_SSLMODE")

	config.RedisHost = viper.GetString("REDIS_HOST")
	config.RedisPort = viper.GetInt("REDIS_PORT")
	config.RedisPassword = viper.GetString("REDIS_PASSWORD")
	config.RedisDB = viper.GetInt("REDIS_DB")

	config.WorkerConcurrency = viper.GetInt("WORKER_CONCURRENCY")
	config.WorkerMaxRetries = viper.GetInt("WORKER_MAX_RETRIES")

	config.ImportChunkSize = viper.GetInt("IMPORT_CHUNK_SIZE")
	config.MaxFileSizeMB = viper.GetInt64("MAX_FILE_SIZE_MB")
	config.StorageBasePath = viper.GetString("STORAGE_BASE_PATH")

	config.AdminUsername = viper.GetString("ADMIN_USERNAME")
	config.AdminPassword = viper.GetString("ADMIN_PASSWORD")

	if config.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if config.DBPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if config.ImportChunkSize <= 0 {
		return nil, fmt.Errorf("IMPORT_CHUNK_SIZE must be positive")
	}

	return config, nil
}

// GetDatabaseURL constructs the PostgreSQL connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// GetRedisAddr constructs the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MaxFileSizeBytes returns the upload size limit in bytes
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig() {
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", c.Environment)
	log.Printf("  Server: %s:%s", c.ServerHost, c.ServerPort)
	log.Printf("  Database: %s:%s/%s", c.DBHost, c.DBPort, c.DBName)
	log.Printf("  Redis: %s:%d (DB: %d)", c.RedisHost, c.RedisPort, c.RedisDB)
	log.Printf("  Chunk Size: %d", c.ImportChunkSize)
	log.Printf("  Worker Concurrency: %d", c.WorkerConcurrency)
	log.Printf("  Storage: %s", c.StorageBasePath)
}
