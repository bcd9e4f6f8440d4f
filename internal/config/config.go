package config // package config loads application configuration from environment variables

import (
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. The types reflect how the
// values are used in the application: strings for identifiers and
// secrets, ints for durations and amounts.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address; empty selects the in-memory store
	DBPort         string // database port number
	DBName         string // database name
	GateAPIKey     string // shared secret presented by gate devices (plain form)
	GateAPIKeyHash string // bcrypt hash of the gate secret (preferred over plain)
	TokenSecret    string // secret used to sign ticket token payloads
	ValidityMin    int    // ticket validity window in minutes
	DefaultBalance int64  // wallet balance seeded on first contact, minor units
}

// Load reads configuration values from environment variables and
// returns a Config. The token secret and a gate credential (either
// plain or hashed) are mandatory; missing values cause the program to
// exit with a fatal log message. Database variables are optional —
// when DB_HOST is unset the service runs against the in-memory store,
// which is intended for development only.
func Load() Config {
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "4000"),
		DBUser:         os.Getenv("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         os.Getenv("DB_HOST"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         envStr("DB_NAME", "railgate"),
		GateAPIKey:     os.Getenv("GATE_API_KEY"),
		GateAPIKeyHash: os.Getenv("GATE_API_KEY_HASH"),
		TokenSecret:    must("TOKEN_SECRET"),
		ValidityMin:    envInt("TICKET_VALIDITY_MIN", 60),
		DefaultBalance: int64(envInt("WALLET_DEFAULT_BALANCE", 500)),
	}
	if cfg.GateAPIKey == "" && cfg.GateAPIKeyHash == "" {
		log.Fatalf("missing gate credential: set GATE_API_KEY or GATE_API_KEY_HASH")
	}
	if cfg.ValidityMin <= 0 {
		log.Fatalf("TICKET_VALIDITY_MIN must be positive, got %d", cfg.ValidityMin)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
