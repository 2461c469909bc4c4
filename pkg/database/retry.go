package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mhrivnak/ssvirt-console/pkg/config"
)

// RetryConfig contains configuration for database connection retries
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig returns sensible defaults for database connection retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     30,
		InitialDelay:    2 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffMultiple: 1.5,
	}
}

// RetryConfigFromConfig creates a RetryConfig from the application configuration
func RetryConfigFromConfig(cfg *config.Config) RetryConfig {
	return RetryConfig{
		MaxAttempts:     cfg.Database.Retry.MaxAttempts,
		InitialDelay:    cfg.Database.Retry.InitialDelay,
		MaxDelay:        cfg.Database.Retry.MaxDelay,
		BackoffMultiple: cfg.Database.Retry.BackoffMultiple,
	}
}

// NewConnectionWithRetry attempts to connect to the database with exponential
// backoff. It blocks until a connection is established, the attempts are
// exhausted, or the context is cancelled.
func NewConnectionWithRetry(ctx context.Context, cfg *config.Config, retryConfig RetryConfig) (*DB, error) {
	var lastErr error
	delay := retryConfig.InitialDelay

	log.Printf("Attempting to connect to database with retry logic (max attempts: %d)", retryConfig.MaxAttempts)

	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connection cancelled: %w", ctx.Err())
		default:
		}

		db, err := NewConnection(cfg)
		if err == nil {
			log.Printf("Database connection established on attempt %d", attempt)
			return db, nil
		}

		lastErr = err
		log.Printf("Database connection attempt %d/%d failed: %v", attempt, retryConfig.MaxAttempts, err)

		if attempt == retryConfig.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("database connection cancelled during retry delay: %w", ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * retryConfig.BackoffMultiple)
		if delay > retryConfig.MaxDelay {
			delay = retryConfig.MaxDelay
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts, last error: %w",
		retryConfig.MaxAttempts, lastErr)
}
