package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flipradar/server/internal/models"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5250, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1.0, cfg.Pricing.FlippingWeight)
	assert.Equal(t, 0.9, cfg.Pricing.DesignerRenovationWeight)
	assert.Equal(t, 0.8, cfg.Pricing.EuroRenovationWeight)
	assert.Equal(t, 0.7, cfg.Pricing.RecencyFloor)
	assert.Equal(t, 365, cfg.Pricing.RecencyHorizonDays)
	assert.Equal(t, 100, cfg.BatchProcessing.MaxBatchSize)
	assert.Equal(t, 60, cfg.Scheduler.RecomputeIntervalMinutes)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("PRICING_WEIGHT_EURO", "0.5")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Pricing.EuroRenovationWeight)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestWeights(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	weights := cfg.Weights()
	assert.Equal(t, 1.0, weights[models.TagFlipping])
	assert.Equal(t, 0.9, weights[models.TagDesignerRenovation])
	assert.Equal(t, 0.8, weights[models.TagEuroRenovation])
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero weight",
			mutate:  func(c *Config) { c.Pricing.FlippingWeight = 0 },
			wantErr: "must be positive",
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Pricing.EuroRenovationWeight = -0.1 },
			wantErr: "must be positive",
		},
		{
			name:    "recency floor above one",
			mutate:  func(c *Config) { c.Pricing.RecencyFloor = 1.5 },
			wantErr: "recency floor",
		},
		{
			name:    "recency floor zero",
			mutate:  func(c *Config) { c.Pricing.RecencyFloor = 0 },
			wantErr: "recency floor",
		},
		{
			name:    "non-positive horizon",
			mutate:  func(c *Config) { c.Pricing.RecencyHorizonDays = 0 },
			wantErr: "recency horizon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
