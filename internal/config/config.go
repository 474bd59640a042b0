package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Sync       SyncConfig
	Relay      RelayConfig
	SignalPoll SignalPollConfig
	WebSocket  WebSocketConfig
	CORS       CORSConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type SyncConfig struct {
	// Passphrase gates device registration. Hashed at startup.
	Passphrase string
	// CorrectionSkewTolerance treats near-simultaneous corrections as
	// the same edit. Tunable; the default matches slightly unsynced
	// device clocks without swallowing real edits.
	CorrectionSkewTolerance time.Duration
	// OperationHistorySize caps the in-memory transfer log.
	OperationHistorySize int
}

type RelayConfig struct {
	RoomTTL       time.Duration
	SweepInterval time.Duration
}

type SignalPollConfig struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnections  int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	roomTTL, err := time.ParseDuration(getEnv("RELAY_ROOM_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_ROOM_TTL: %w", err)
	}

	sweepInterval, err := time.ParseDuration(getEnv("RELAY_SWEEP_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RELAY_SWEEP_INTERVAL: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5984"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "scoutsync"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration: jwtExp,
		},
		Sync: SyncConfig{
			Passphrase:              getEnv("SYNC_PASSPHRASE", "scout-sync-dev"),
			CorrectionSkewTolerance: time.Duration(getEnvAsInt("CORRECTION_SKEW_TOLERANCE_MS", 1000)) * time.Millisecond,
			OperationHistorySize:    getEnvAsInt("OPERATION_HISTORY_SIZE", 50),
		},
		Relay: RelayConfig{
			RoomTTL:       roomTTL,
			SweepInterval: sweepInterval,
		},
		SignalPoll: SignalPollConfig{
			BaseInterval: time.Duration(getEnvAsInt("SIGNAL_POLL_BASE_MS", 2000)) * time.Millisecond,
			MaxInterval:  time.Duration(getEnvAsInt("SIGNAL_POLL_MAX_MS", 15000)) * time.Millisecond,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnections:  getEnvAsInt("WS_MAX_CONNECTIONS", 32),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
