package cnn_go

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Evaluator Scores held-out batches without touching parameters
type Evaluator struct {
	predictor Predictor
}

// NewEvaluator Creates evaluator over provided predictor
func NewEvaluator(predictor Predictor) *Evaluator {
	return &Evaluator{predictor: predictor}
}

// Evaluate Runs every batch of loader through predictor.
//
// Loss is summed per sample and divided by size of the whole dataset, accuracy is 100*correct/size.
// Dataset size (not number of scored samples) is the denominator, so samples of dropped trailing batch count as misses.
//
func (e *Evaluator) Evaluate(ctx context.Context, loader *Loader) (EvalResult, error) {
	res := EvalResult{Total: loader.Dataset().Len()}
	if res.Total == 0 {
		return res, errors.New("evaluation dataset is empty")
	}
	var sumLoss float64
	it := loader.Iterate(ctx)
	defer it.Close()
	for it.Next() {
		b := it.Batch()
		pred, err := e.predictor.Predict(b)
		if err != nil {
			return res, errors.Wrapf(err, "Can't score batch #%d", b.Index)
		}
		if len(pred.Scores) != b.Size() {
			return res, fmt.Errorf("batch #%d: got %d score rows for %d samples", b.Index, len(pred.Scores), b.Size())
		}
		sumLoss += pred.SumLoss
		for i, row := range pred.Scores {
			if Argmax(row) == b.Labels[i] {
				res.Correct++
			}
		}
	}
	if err := it.Err(); err != nil {
		return res, errors.Wrap(err, "Can't iterate evaluation batches")
	}
	res.MeanLoss = sumLoss / float64(res.Total)
	res.Accuracy = 100.0 * float64(res.Correct) / float64(res.Total)
	return res, nil
}

// Argmax Returns index of maximum value. Ties are resolved to the lowest index. Returns -1 for empty slice
func Argmax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
