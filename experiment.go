package cnn_go

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// EpochResult Training and evaluation outcome of a single epoch
type EpochResult struct {
	Train EpochStats
	Test  EvalResult
}

// RunExperiment Trains classifier on CIFAR-10 from cfg.DataRoot and evaluates it after every epoch.
//
// Console lines go to out, or are appended to cfg.RecordPath() when cfg.SaveRecord is set.
// Loss curve is saved to cfg.PlotPath when it is not empty.
//
func RunExperiment(ctx context.Context, cfg Config, out io.Writer) ([]EpochResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid configuration")
	}
	runID := uuid.New()
	logger := log.New(log.Writer(), "run="+runID.String()+" ", log.LstdFlags)

	seeder := NewSeeder(cfg.Seed)
	device := SelectDevice(cfg.Device)
	if device.Fallback != nil {
		logger.Printf("falling back to cpu: %v", device.Fallback)
	}
	logger.Printf("device=%s seed=%d", device, seeder.Seed())

	trainSet, err := LoadCIFAR10(cfg.DataRoot, true)
	if err != nil {
		return nil, errors.Wrap(err, "Can't load training split")
	}
	testSet, err := LoadCIFAR10(cfg.DataRoot, false)
	if err != nil {
		return nil, errors.Wrap(err, "Can't load test split")
	}
	logger.Printf("train=%d test=%d classes=%v", trainSet.Len(), testSet.Len(), trainSet.Classes)

	reporter := NewReporter(out)
	if cfg.SaveRecord {
		reporter, err = NewRecordReporter(cfg.RecordPath())
		if err != nil {
			return nil, err
		}
		logger.Printf("console output is appended to %s", cfg.RecordPath())
	}
	defer reporter.Close()

	return Run(ctx, cfg, seeder, trainSet, testSet, reporter)
}

// Run Executes experiment on already loaded datasets
func Run(ctx context.Context, cfg Config, seeder *Seeder, trainSet, testSet Dataset, reporter *Reporter) ([]EpochResult, error) {
	trainLoader, err := NewLoader(trainSet, cfg.BatchSize, cfg.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create training loader")
	}
	testLoader, err := NewLoader(testSet, cfg.BatchSize, cfg.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create test loader")
	}

	model, err := NewModel(cfg, seeder.Stream("parameters"))
	if err != nil {
		return nil, errors.Wrap(err, "Can't build model")
	}
	defer model.Close()

	trainer := NewTrainer(cfg, model, reporter)
	evaluator := NewEvaluator(model)

	if err := reporter.Start(time.Now()); err != nil {
		return nil, err
	}
	results := make([]EpochResult, 0, cfg.Epochs)
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		stats, err := trainer.TrainEpoch(ctx, epoch, trainLoader)
		if err != nil {
			return results, err
		}
		res, err := evaluator.Evaluate(ctx, testLoader)
		if err != nil {
			return results, errors.Wrapf(err, "Can't evaluate after epoch %d", epoch)
		}
		res.Epoch = epoch
		if err := reporter.Result(res); err != nil {
			return results, err
		}
		results = append(results, EpochResult{Train: stats, Test: res})
	}

	if cfg.PlotPath != "" {
		if err := PlotLoss(reporter.Records(), cfg.PlotPath); err != nil {
			return results, errors.Wrap(err, "Can't plot training loss")
		}
	}
	return results, nil
}
