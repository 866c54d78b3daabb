// Package experiment wires the datasets package into runnable experiments:
// a hierarchical JSON configuration, train and eval loops scored with the
// baseline classifiers, and a runner that launches those loops as separate
// OS processes joined with a timeout.
package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DataConfig selects and shapes the character collection.
type DataConfig struct {
	// Dir is the Omniglot root: dir/<alphabet>/<character*>/*.png.
	Dir string `json:"dir"`

	NumTrain int `json:"num_train"`
	NumValid int `json:"num_valid"`
	NumTest  int `json:"num_test"`

	// MaxCharacterSize caps images loaded per character (0 = all).
	MaxCharacterSize int `json:"max_character_size"`

	// Rotations augments the train split with rotated copies.
	Rotations []int `json:"rotations"`

	ShuffleCharacters bool `json:"shuffle_characters"`
	ShuffleData       bool `json:"shuffle_data"`
	Verbose           bool `json:"verbose"`
}

// SamplingConfig shapes the meta-batches drawn by the sampler.
type SamplingConfig struct {
	BatchSize  int `json:"batch_size"`
	NumClasses int `json:"num_classes"`
}

// TrainConfig configures the training loop. A nil TrainConfig in Config
// disables the TRAIN process entirely.
type TrainConfig struct {
	Steps     int    `json:"steps"`
	LogEvery  int    `json:"log_every"`
	Shots     int    `json:"shots"`
	Neighbors int    `json:"neighbors"`
	Plot      string `json:"plot"`
}

// EvalConfig configures the evaluation loop. A nil EvalConfig in Config
// disables the EVAL process entirely.
type EvalConfig struct {
	// Split is "train", "valid" or "test".
	Split     string `json:"split"`
	Episodes  int    `json:"episodes"`
	Shots     int    `json:"shots"`
	Neighbors int    `json:"neighbors"`
	Plot      string `json:"plot"`
}

// RunConfig holds run-wide settings.
type RunConfig struct {
	// Seed feeds every random generator of the run; runs with the same seed
	// and configuration sample the same episodes.
	Seed int64 `json:"seed"`

	// TimeoutSeconds bounds the join on the child processes; elapsing it
	// terminates them.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Config is the full hierarchical experiment configuration.
type Config struct {
	Data     DataConfig     `json:"data"`
	Sampling SamplingConfig `json:"sampling"`
	Train    *TrainConfig   `json:"train"`
	Eval     *EvalConfig    `json:"eval"`
	Run      RunConfig      `json:"run"`
}

// DefaultConfig returns the stock Omniglot configuration: the canonical
// 1000/200/463 category split, 5-way episodes, meta-batches of 16.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:               "data/omniglot",
			NumTrain:          1000,
			NumValid:          200,
			NumTest:           463,
			ShuffleCharacters: true,
			ShuffleData:       true,
			Verbose:           true,
		},
		Sampling: SamplingConfig{
			BatchSize:  16,
			NumClasses: 5,
		},
		Train: &TrainConfig{
			Steps:    100,
			LogEvery: 10,
			Shots:    5,
		},
		Eval: &EvalConfig{
			Split:    "valid",
			Episodes: 100,
			Shots:    5,
		},
		Run: RunConfig{
			Seed:           42,
			TimeoutSeconds: 3600,
		},
	}
}

// LoadConfig reads a JSON configuration file and merges it over the
// defaults: fields absent from the file keep their default values. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Timeout returns the run timeout as a duration; zero or negative
// TimeoutSeconds means no limit.
func (c *Config) Timeout() time.Duration {
	if c.Run.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}
