package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"

	"flipradar/server/internal/models"
)

type Config struct {
	Server struct {
		// Port the HTTP API listens on
		Port int `env:"SERVER_PORT" envDefault:"5250"`

		// Path to the SQLite database file
		DBPath string `env:"DB_PATH" envDefault:"database/flipradar.db"`

		// Origins allowed by the CORS middleware
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	// Pricing holds the reference-price policy. The weights and the recency
	// decay are policy decisions, so they are tunable per deployment.
	Pricing struct {
		// Base weight for objects tagged "flipping"
		FlippingWeight float64 `env:"PRICING_WEIGHT_FLIPPING" envDefault:"1.0"`

		// Base weight for objects tagged "designer_renovation"
		DesignerRenovationWeight float64 `env:"PRICING_WEIGHT_DESIGNER" envDefault:"0.9"`

		// Base weight for objects tagged "euro_renovation"
		EuroRenovationWeight float64 `env:"PRICING_WEIGHT_EURO" envDefault:"0.8"`

		// Lower bound of the recency decay factor
		RecencyFloor float64 `env:"PRICING_RECENCY_FLOOR" envDefault:"0.7"`

		// Number of days over which the recency factor decays to the floor
		RecencyHorizonDays int `env:"PRICING_RECENCY_HORIZON_DAYS" envDefault:"365"`
	}

	// BatchProcessing configures the object intake pipeline
	BatchProcessing struct {
		// Maximum number of objects to accumulate before processing
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Maximum time to wait before processing a non-full batch (in seconds)
		MaxBatchWaitTime int `env:"BATCH_WAIT_TIME" envDefault:"30"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	Scheduler struct {
		// Minutes between scheduled recomputes; 0 disables the scheduler
		RecomputeIntervalMinutes int `env:"SCHEDULER_RECOMPUTE_MINUTES" envDefault:"60"`
	}
}

// Weights materializes the configured tag weight table.
func (c *Config) Weights() map[models.EvaluationTag]float64 {
	return map[models.EvaluationTag]float64{
		models.TagFlipping:           c.Pricing.FlippingWeight,
		models.TagDesignerRenovation: c.Pricing.DesignerRenovationWeight,
		models.TagEuroRenovation:     c.Pricing.EuroRenovationWeight,
	}
}

// Validate rejects pricing policies the engine cannot work with. Every tag
// must carry a positive weight and the recency decay must stay within (0, 1].
func (c *Config) Validate() error {
	for tag, weight := range c.Weights() {
		if weight <= 0 {
			return fmt.Errorf("evaluation weight for %q must be positive, got %v", tag, weight)
		}
	}
	if c.Pricing.RecencyFloor <= 0 || c.Pricing.RecencyFloor > 1 {
		return fmt.Errorf("recency floor must be in (0, 1], got %v", c.Pricing.RecencyFloor)
	}
	if c.Pricing.RecencyHorizonDays <= 0 {
		return fmt.Errorf("recency horizon must be positive, got %d", c.Pricing.RecencyHorizonDays)
	}
	return nil
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
