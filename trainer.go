package cnn_go

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// EpochStats Summary of one training pass
//
// Batches - number of batches processed (optimizer steps made)
// Truncated - true when epoch was ended early by TruncateAt
//
type EpochStats struct {
	Epoch     int
	Batches   int
	Truncated bool
	LastLoss  float64
}

// Trainer Runs optimization steps over training batches
type Trainer struct {
	logInterval int
	truncateAt  int
	learner     Learner
	reporter    *Reporter
}

// NewTrainer Creates trainer. Only LogInterval and TruncateAt are taken from configuration: other hyperparameters live in learner
func NewTrainer(cfg Config, learner Learner, reporter *Reporter) *Trainer {
	logInterval := cfg.LogInterval
	if logInterval <= 0 {
		logInterval = DefaultConfig().LogInterval
	}
	return &Trainer{
		logInterval: logInterval,
		truncateAt:  cfg.TruncateAt,
		learner:     learner,
		reporter:    reporter,
	}
}

// TrainEpoch Makes one pass over loader's batches in order
//
// Progress record is emitted for every batch index divisible by LogInterval and for the batch index reaching TruncateAt.
// Reaching TruncateAt ends the epoch right after that batch.
// Non-finite loss stops training with ErrTrainingDivergence.
//
func (t *Trainer) TrainEpoch(ctx context.Context, epoch int, loader *Loader) (EpochStats, error) {
	stats := EpochStats{Epoch: epoch}
	numBatches := loader.Len()
	total := loader.Dataset().Len()
	it := loader.Iterate(ctx)
	defer it.Close()
	for it.Next() {
		b := it.Batch()
		loss, err := t.learner.TrainStep(b)
		if err != nil {
			return stats, errors.Wrapf(err, "Can't train on batch #%d of epoch %d", b.Index, epoch)
		}
		stats.Batches++
		stats.LastLoss = loss
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return stats, errors.Wrapf(ErrTrainingDivergence, "epoch %d, batch #%d: loss = %v", epoch, b.Index, loss)
		}
		truncate := t.truncateAt >= 0 && b.Index >= t.truncateAt
		if b.Index%t.logInterval == 0 || truncate {
			rec := ProgressRecord{
				Epoch:   epoch,
				Batch:   b.Index,
				Seen:    b.Index * b.Size(),
				Total:   total,
				Percent: 100.0 * float64(b.Index) / float64(numBatches),
				Loss:    loss,
				Final:   truncate,
			}
			if t.reporter != nil {
				if err := t.reporter.Progress(rec); err != nil {
					return stats, err
				}
			}
		}
		if truncate {
			stats.Truncated = true
			return stats, nil
		}
	}
	if err := it.Err(); err != nil {
		return stats, errors.Wrapf(err, "Can't iterate training batches of epoch %d", epoch)
	}
	return stats, nil
}
