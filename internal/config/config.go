// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and
// an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for both binaries.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabaseDSN holds the PostgreSQL connection string.
	DatabaseDSN string `json:"database_dsn"`

	// JWTSecret signs and verifies bearer tokens.
	JWTSecret string `json:"jwt_secret"`

	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL time.Duration `json:"-"`

	// ServerURL is the backend base URL used by the client.
	ServerURL string `json:"server_url"`

	// TokenFile is where the client persists its bearer token.
	// The master password is never written there.
	TokenFile string `json:"token_file"`

	// BreachURL is the base URL of the k-anonymity range service.
	BreachURL string `json:"breach_url"`

	// LogLevel selects the zap logging level.
	LogLevel string `json:"log_level"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{TokenTTL: 24 * time.Hour}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Address, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.JWTSecret, "jwt-secret", "", "secret for signing bearer tokens")
	flag.StringVar(&options.ServerURL, "url", "http://localhost:8080", "backend base URL")
	flag.StringVar(&options.TokenFile, "token-file", "token.json", "path to the persisted bearer token")
	flag.StringVar(&options.BreachURL, "breach-url", "https://api.pwnedpasswords.com/range/", "breach range service base URL")
	flag.StringVar(&options.LogLevel, "log-level", "info", "logging level")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags, the .env file (when present), the
// JSON config file and environment variables. Precedence, lowest to
// highest: flag defaults, config file, environment. It returns a pointer
// to the Options struct containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Address = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		options.JWTSecret = secret
	}
	if url := os.Getenv("SERVER_URL"); url != "" {
		options.ServerURL = url
	}
	if url := os.Getenv("BREACH_URL"); url != "" {
		options.BreachURL = url
	}

	return options
}
