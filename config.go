package cnn_go

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// Spatial input size the classifier topology is fixed to
	ImageChannels = 3
	ImageHeight   = 32
	ImageWidth    = 32
	ImageSize     = ImageChannels * ImageHeight * ImageWidth
	// NumClasses Size of the closed label set
	NumClasses = 10
)

// Config Immutable set of knobs for one experiment.
//
// Hyperparameters (Epochs, BatchSize, LearningRate, Momentum, Seed, LogInterval, TruncateAt) are fixed by DefaultConfig.
// Only locations and switches (DataRoot, Device, SaveRecord, RecordDir, PlotPath) are expected to be overridden.
//
type Config struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Momentum     float64
	Seed         int64
	// Workers Number of loader goroutines decoding samples ahead of the training loop
	Workers int
	// LogInterval Emit progress record every N-th batch
	LogInterval int
	// TruncateAt Batch index which ends an epoch early (inclusive). Negative value disables truncation
	TruncateAt int

	DataRoot   string
	Device     string
	SaveRecord bool
	RecordDir  string
	PlotPath   string
}

// DefaultConfig Returns the baseline experiment configuration
func DefaultConfig() Config {
	return Config{
		Epochs:       1,
		BatchSize:    64,
		LearningRate: 0.01,
		Momentum:     0.5,
		Seed:         22,
		Workers:      2,
		LogInterval:  200,
		TruncateAt:   474,
		DataRoot:     "./.data",
		Device:       DeviceCPU,
		SaveRecord:   false,
		RecordDir:    "./plot",
	}
}

// Validate Checks that configuration is runnable
func (cfg Config) Validate() error {
	if cfg.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0, but got %d", cfg.Epochs)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0, but got %d", cfg.BatchSize)
	}
	if math.IsNaN(cfg.LearningRate) || math.IsInf(cfg.LearningRate, 0) || cfg.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be finite and > 0, but got %v", cfg.LearningRate)
	}
	if cfg.Momentum < 0 || cfg.Momentum >= 1 {
		return fmt.Errorf("momentum must be in [0;1), but got %v", cfg.Momentum)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, but got %d", cfg.Workers)
	}
	if cfg.LogInterval <= 0 {
		return fmt.Errorf("log interval must be > 0, but got %d", cfg.LogInterval)
	}
	if cfg.DataRoot == "" {
		return errors.New("data root must be set")
	}
	if cfg.SaveRecord && cfg.RecordDir == "" {
		return errors.New("record directory must be set when saving record is enabled")
	}
	return nil
}

// RecordPath Returns path of the file which receives console output when SaveRecord is enabled
func (cfg Config) RecordPath() string {
	return filepath.Join(cfg.RecordDir, fmt.Sprintf("compare_cnn_record%d.txt", cfg.Seed))
}
