package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// WhatsApp configuration
	WhatsApp WhatsAppConfig `json:"whatsapp"`

	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Game configuration
	Game GameConfig `json:"game"`

	// Server configuration
	Server ServerConfig `json:"server"`
}

// WhatsAppConfig holds WhatsApp specific configuration
type WhatsAppConfig struct {
	// Whether the WhatsApp transport is started
	Enabled bool `json:"enabled"`

	// Path to store WhatsApp session data
	StoreDir string `json:"store_dir"`

	// Client device name
	ClientName string `json:"client_name"`

	// Phone number of the bot account
	PhoneNumber string `json:"phone_number"`

	// Group chat the game is played in
	GroupJID string `json:"group_jid"`
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	// Turn log backend (json, sqlite3, postgres, none)
	Driver string `json:"driver"`

	// Database connection string, or file path for json
	DSN string `json:"dsn"`
}

// GameConfig holds game specific configuration
type GameConfig struct {
	// Number of rounds per game
	Rounds int `json:"rounds"`

	// Number of players per game
	PlayerCount int `json:"player_count"`

	// Starting capital of every player
	InitialCapital float64 `json:"initial_capital"`

	// Discount rate used for NPV
	DiscountRate float64 `json:"discount_rate"`

	// Seed for market event draws (0 = time based)
	Seed int64 `json:"seed"`

	// Optional YAML catalog replacing the built-in one
	CatalogPath string `json:"catalog_path"`
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		WhatsApp: WhatsAppConfig{
			Enabled:    false,
			StoreDir:   "./whatsapp-store",
			ClientName: "CFO CHALLENGE",
		},
		Database: DatabaseConfig{
			Driver: "json",
			DSN:    "./data/game_log.json",
		},
		Game: GameConfig{
			Rounds:         5,
			PlayerCount:    4,
			InitialCapital: 5_000_000,
			DiscountRate:   0.10,
			Seed:           0,
			CatalogPath:    "",
		},
		Server: ServerConfig{
			Port:     "8080",
			LogLevel: "info",
		},
	}
}

// LoadConfig loads configuration from a file, then applies .env and environment overrides
func LoadConfig(path string) (Config, error) {
	config, err := loadFile(path)
	if err != nil {
		return config, err
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	ApplyEnv(&config)

	return config, nil
}

func loadFile(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Create default config file
		return config, SaveConfig(config, path)
	}

	// Read config file
	file, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return config, err
	}

	return config, nil
}

// ApplyEnv overrides configuration values from environment variables
func ApplyEnv(config *Config) {
	if port := os.Getenv("CFO_PORT"); port != "" {
		config.Server.Port = port
	}
	if level := os.Getenv("CFO_LOG_LEVEL"); level != "" {
		config.Server.LogLevel = level
	}
	if driver := os.Getenv("CFO_DB_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Database.DSN = dsn
	}
	if seed := os.Getenv("CFO_SEED"); seed != "" {
		if v, err := strconv.ParseInt(seed, 10, 64); err == nil {
			config.Game.Seed = v
		}
	}
	if group := os.Getenv("CFO_WHATSAPP_GROUP"); group != "" {
		config.WhatsApp.GroupJID = group
		config.WhatsApp.Enabled = true
	}
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(config); err != nil {
		return err
	}

	return nil
}
