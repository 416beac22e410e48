package collection

import (
	"fmt"
	"os"
	"time"

	"github.com/AccelByte/extend-pbis-collection/pkg/common"
	"github.com/AccelByte/extend-pbis-collection/pkg/pbis"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a collection run.
type Config struct {
	LevelThresholds       []int         `yaml:"levelThresholds"`
	CardsPerTeamLevel     int           `yaml:"cardsPerTeamLevel"`
	MaxWinnersPerCycle    int           `yaml:"maxWinnersPerCycle"`
	ExclusionWindowCycles int           `yaml:"exclusionWindowCycles"`
	Concurrency           int           `yaml:"concurrency"`
	MutationTimeout       time.Duration `yaml:"mutationTimeout"`
}

// DefaultConfig returns the standard PBIS program settings.
func DefaultConfig() Config {
	thresholds := make([]int, len(pbis.DefaultLevelThresholds))
	copy(thresholds, pbis.DefaultLevelThresholds)

	return Config{
		LevelThresholds:       thresholds,
		CardsPerTeamLevel:     pbis.DefaultCardsPerTeamLevel,
		MaxWinnersPerCycle:    pbis.DefaultMaxWinnersPerCycle,
		ExclusionWindowCycles: pbis.DefaultExclusionWindowCycles,
		Concurrency:           1,
	}
}

// LoadConfig loads collection configuration from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML collection configuration on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(common.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	if len(c.LevelThresholds) == 0 {
		return fmt.Errorf("%w: levelThresholds must not be empty", ErrInvalidConfig)
	}
	for i, threshold := range c.LevelThresholds {
		if threshold <= 0 {
			return fmt.Errorf("%w: levelThresholds[%d] must be positive, got %d", ErrInvalidConfig, i, threshold)
		}
		if i > 0 && threshold <= c.LevelThresholds[i-1] {
			return fmt.Errorf("%w: levelThresholds must be strictly ascending at index %d", ErrInvalidConfig, i)
		}
	}

	if c.CardsPerTeamLevel <= 0 {
		return fmt.Errorf("%w: cardsPerTeamLevel must be positive, got %d", ErrInvalidConfig, c.CardsPerTeamLevel)
	}
	if c.MaxWinnersPerCycle < 0 {
		return fmt.Errorf("%w: maxWinnersPerCycle must not be negative, got %d", ErrInvalidConfig, c.MaxWinnersPerCycle)
	}
	if c.ExclusionWindowCycles < 0 {
		return fmt.Errorf("%w: exclusionWindowCycles must not be negative, got %d", ErrInvalidConfig, c.ExclusionWindowCycles)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, c.Concurrency)
	}
	if c.MutationTimeout < 0 {
		return fmt.Errorf("%w: mutationTimeout must not be negative, got %s", ErrInvalidConfig, c.MutationTimeout)
	}

	return nil
}
