package cnn_go

import (
	"context"
	"math"
	"testing"
)

// labelPredictor Predicts true label for even batches and class 0 with tied scores for odd ones
type labelPredictor struct {
	calls int
}

func (p *labelPredictor) Predict(b *Batch) (*Prediction, error) {
	p.calls++
	scores := make([][]float64, b.Size())
	for i, l := range b.Labels {
		row := make([]float64, NumClasses)
		if b.Index%2 == 0 {
			row[l] = 5
		} else {
			// every score ties: argmax resolves to class 0
			for j := range row {
				row[j] = 1
			}
		}
		scores[i] = row
	}
	return &Prediction{Scores: scores, SumLoss: 0.5 * float64(b.Size())}, nil
}

func TestEvaluate(t *testing.T) {
	// 23 samples, batches of 4: 5 batches scored, 3 trailing samples dropped
	loader, err := NewLoader(indexedDataset{n: 23}, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	predictor := &labelPredictor{}
	res, err := NewEvaluator(predictor).Evaluate(context.Background(), loader)
	if err != nil {
		t.Fatal(err)
	}
	if predictor.calls != 5 {
		t.Fatalf("expected 5 scored batches, got %d", predictor.calls)
	}
	// even batches #0, #2, #4 are fully correct (12 samples); odd batches #1 (samples 4..7) and #3 (samples 12..15)
	// predict class 0 which matches none of labels 4..7 and 2..5
	if res.Correct != 12 {
		t.Fatalf("expected 12 correct predictions, got %d", res.Correct)
	}
	if res.Total != 23 {
		t.Fatalf("expected dataset size 23 as denominator, got %d", res.Total)
	}
	if math.Abs(res.Accuracy-100*12.0/23.0) > 1e-12 {
		t.Errorf("unexpected accuracy %v", res.Accuracy)
	}
	if math.Abs(res.MeanLoss-0.5*20/23.0) > 1e-12 {
		t.Errorf("unexpected mean loss %v", res.MeanLoss)
	}
}

func TestEvaluateBounds(t *testing.T) {
	cfg := testConfig(5)
	model, err := NewModel(cfg, NewSeeder(22).Rand())
	if err != nil {
		t.Fatal(err)
	}
	defer model.Close()
	loader, err := NewLoader(syntheticDataset(t, 20, 1), cfg.BatchSize, 2)
	if err != nil {
		t.Fatal(err)
	}
	res, err := NewEvaluator(model).Evaluate(context.Background(), loader)
	if err != nil {
		t.Fatal(err)
	}
	if res.Accuracy < 0 || res.Accuracy > 100 {
		t.Errorf("accuracy %v is out of [0;100]", res.Accuracy)
	}
	if res.MeanLoss < 0 || math.IsNaN(res.MeanLoss) {
		t.Errorf("mean loss %v must be >= 0", res.MeanLoss)
	}
}

func TestArgmax(t *testing.T) {
	cases := []struct {
		values []float64
		want   int
	}{
		{values: nil, want: -1},
		{values: []float64{3}, want: 0},
		{values: []float64{1, 3, 2}, want: 1},
		{values: []float64{2, 7, 7, 1}, want: 1},
		{values: []float64{-1, -1, -1}, want: 0},
	}
	for _, c := range cases {
		if got := Argmax(c.values); got != c.want {
			t.Errorf("Argmax(%v): expected %d, got %d", c.values, c.want, got)
		}
	}
}
