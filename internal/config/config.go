package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Lookup API
	LookupBaseURL  string
	LookupTimeout  time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration

	// Batching & pacing
	BatchSize  int
	ChunkSize  int
	ChunkDelay time.Duration
	BatchDelay time.Duration

	// Scheduling
	RunHourUTC int

	// Reporting
	WebhookURL   string
	ReporterName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		// Database
		MongoURI:        envStr("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   envStr("MONGODB_DB", "realestate"),
		MongoCollection: envStr("PROPERTIES_COLLECTION", "properties"),

		// Lookup API
		LookupBaseURL:  envStr("LOOKUP_API_URL", ""),
		LookupTimeout:  envSeconds("LOOKUP_TIMEOUT_SECONDS", 30),
		RetryAttempts:  envInt("LOOKUP_RETRY_ATTEMPTS", 3),
		RetryBaseDelay: envSeconds("LOOKUP_RETRY_BASE_SECONDS", 2),

		// Batching & pacing
		BatchSize:  envInt("BATCH_SIZE", 20),
		ChunkSize:  envInt("CHUNK_SIZE", 5),
		ChunkDelay: envSeconds("CHUNK_DELAY_SECONDS", 1),
		BatchDelay: envSeconds("BATCH_DELAY_SECONDS", 5),

		// Scheduling
		RunHourUTC: envInt("RUN_HOUR_UTC", 2),

		// Reporting
		WebhookURL:   envStr("WEBHOOK_URL", ""),
		ReporterName: envStr("REPORTER_NAME", "PriceTracker"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.LookupBaseURL == "" {
		errs = append(errs, "LOOKUP_API_URL is required")
	}
	if c.BatchSize <= 0 {
		errs = append(errs, "BATCH_SIZE must be positive")
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, "CHUNK_SIZE must be positive")
	}
	if c.RunHourUTC < 0 || c.RunHourUTC > 23 {
		errs = append(errs, "RUN_HOUR_UTC must be between 0 and 23")
	}

	if c.ChunkSize > c.BatchSize {
		fmt.Println("[WARN] CHUNK_SIZE exceeds BATCH_SIZE — chunks will be clipped to batch boundaries")
	}
	if c.WebhookURL == "" {
		fmt.Println("[WARN] WEBHOOK_URL not set — run reports go to console only")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== Listing Price Tracker Configuration ===")
	fmt.Printf("Mongo: %s/%s (collection %s)\n", redactURI(c.MongoURI), c.MongoDatabase, c.MongoCollection)
	fmt.Printf("Lookup API: %s (timeout %s)\n", c.LookupBaseURL, c.LookupTimeout)
	fmt.Printf("Retries: %d attempts, base delay %s\n", c.RetryAttempts, c.RetryBaseDelay)
	fmt.Println("-------------------------------------------")
	fmt.Println("Batching:")
	fmt.Printf("  Batch size: %d\n", c.BatchSize)
	fmt.Printf("  Chunk size: %d\n", c.ChunkSize)
	fmt.Printf("  Chunk delay: %s\n", c.ChunkDelay)
	fmt.Printf("  Batch delay: %s\n", c.BatchDelay)
	fmt.Println("-------------------------------------------")
	fmt.Printf("Daily run: %02d:00 UTC\n", c.RunHourUTC)
	fmt.Printf("Run reports: %s\n", boolLabel(c.WebhookURL != "", "webhook + console", "console only"))
	fmt.Println("===========================================")
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}

// redactURI strips credentials from a mongodb:// URI before printing.
func redactURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	if at == -1 {
		return uri
	}
	scheme := strings.Index(uri, "://")
	if scheme == -1 {
		return uri
	}
	return uri[:scheme+3] + "***" + uri[at:]
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
