package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sleepywoodpecker/swing-platform/internal/swing"

	"github.com/joho/godotenv"
)

// Config is everything the platform reads from the environment.
type Config struct {
	LeadSerialPort  string
	TrailSerialPort string
	Baudrate        int
	LeadRawLogFile  string
	TrailRawLogFile string

	WeightThreshold float64
	FrameTime       time.Duration
	SampleInterval  time.Duration
	CueTiming       swing.CueTiming

	HTTPAddr     string
	TelegrafAddr string

	LogFilePath string
	LogLevel    string
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// FromEnv builds a Config from the environment, falling back to defaults.
func FromEnv() (Config, error) {
	cueTiming, err := swing.ParseCueTiming(GetEnv("CUE_TIMING", "concurrent"))
	if err != nil {
		return Config{}, fmt.Errorf("CUE_TIMING: %w", err)
	}

	cfg := Config{
		LeadSerialPort:  GetEnv("LEAD_SERIAL_PORT", "/dev/ttyUSB0"),
		TrailSerialPort: GetEnv("TRAIL_SERIAL_PORT", "/dev/ttyUSB1"),
		Baudrate:        GetEnvInt("BAUDRATE", 460800),
		LeadRawLogFile:  GetEnv("LEAD_RAW_LOG_FILE", ""),
		TrailRawLogFile: GetEnv("TRAIL_RAW_LOG_FILE", ""),

		WeightThreshold: GetEnvFloat("WEIGHT_THRESHOLD", swing.DefaultWeightThreshold),
		FrameTime:       GetEnvMillis("FRAME_TIME_MS", swing.DefaultFrameTime),
		SampleInterval:  GetEnvMillis("SAMPLE_INTERVAL_MS", swing.DefaultSampleInterval),
		CueTiming:       cueTiming,

		HTTPAddr:     GetEnv("HTTP_ADDR", ":8080"),
		TelegrafAddr: GetEnv("TELEGRAF_ADDR", ""),

		LogFilePath: GetEnv("LOG_FILE_PATH", "swing.logs"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),
	}

	if cfg.FrameTime <= 0 || cfg.SampleInterval <= 0 {
		return Config{}, fmt.Errorf("FRAME_TIME_MS and SAMPLE_INTERVAL_MS must be positive")
	}
	return cfg, nil
}

// SwingOptions is the state machine's view of the configuration.
func (c Config) SwingOptions() swing.Options {
	return swing.Options{
		WeightThreshold: c.WeightThreshold,
		FrameTime:       c.FrameTime,
		SampleInterval:  c.SampleInterval,
		CueTiming:       c.CueTiming,
	}
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func GetEnvFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetEnvMillis reads a possibly fractional millisecond count, e.g. "12.5".
func GetEnvMillis(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}
	return fallback
}
