package cnn_go

import (
	"math"
	"testing"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func evalLoss(t *testing.T, logits []float64, labels []int, reduction LossReduction) float64 {
	t.Helper()
	n := len(labels)
	onehot := make([]float64, n*NumClasses)
	for i, l := range labels {
		onehot[i*NumClasses+l] = 1
	}
	g := gorgonia.NewGraph()
	scores := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(n, NumClasses), gorgonia.WithName("scores"), gorgonia.WithValue(tensor.New(tensor.WithShape(n, NumClasses), tensor.WithBacking(logits))))
	target := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(n, NumClasses), gorgonia.WithName("target"), gorgonia.WithValue(tensor.New(tensor.WithShape(n, NumClasses), tensor.WithBacking(onehot))))
	cost, err := SoftmaxCrossEntropyLoss(scores, target, reduction)
	if err != nil {
		t.Fatal(err)
	}
	var costVal gorgonia.Value
	gorgonia.Read(cost, &costVal)
	tm := gorgonia.NewTapeMachine(g)
	defer tm.Close()
	if err := tm.RunAll(); err != nil {
		t.Fatal(err)
	}
	v, err := scalarValue(costVal)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

// referenceLoss Cross entropy of one row computed with log-sum-exp
func referenceLoss(row []float64, label int) float64 {
	maxV := row[0]
	for _, v := range row {
		maxV = math.Max(maxV, v)
	}
	sum := 0.0
	for _, v := range row {
		sum += math.Exp(v - maxV)
	}
	return -(row[label] - maxV - math.Log(sum))
}

func TestSoftmaxCrossEntropyUniform(t *testing.T) {
	logits := make([]float64, 3*NumClasses)
	got := evalLoss(t, logits, []int{0, 4, 9}, LossReductionMean)
	if math.Abs(got-math.Log(NumClasses)) > 1e-9 {
		t.Errorf("expected ln(10)=%v, got %v", math.Log(NumClasses), got)
	}
	got = evalLoss(t, logits, []int{0, 4, 9}, LossReductionSum)
	if math.Abs(got-3*math.Log(NumClasses)) > 1e-9 {
		t.Errorf("expected 3*ln(10)=%v, got %v", 3*math.Log(NumClasses), got)
	}
}

func TestSoftmaxCrossEntropyReference(t *testing.T) {
	logits := []float64{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
		-2, 0.5, 0, 3, -1, 2, 0, 0, 1, -0.5,
	}
	labels := []int{9, 0}
	want := 0.0
	for i, l := range labels {
		want += referenceLoss(logits[i*NumClasses:(i+1)*NumClasses], l)
	}
	if got := evalLoss(t, logits, labels, LossReductionSum); math.Abs(got-want) > 1e-9 {
		t.Errorf("sum: expected %v, got %v", want, got)
	}
	if got := evalLoss(t, logits, labels, LossReductionMean); math.Abs(got-want/2) > 1e-9 {
		t.Errorf("mean: expected %v, got %v", want/2, got)
	}
}

func TestSoftmaxCrossEntropyGradientEveryRow(t *testing.T) {
	const n = 4
	logits := []float64{
		0.5, -1, 2, 0, 0, 0, 1, 0, 0, 0,
		-2, 0.5, 0, 3, -1, 2, 0, 0, 1, -0.5,
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	labels := []int{2, 0, 9, 5}
	onehot := make([]float64, n*NumClasses)
	for i, l := range labels {
		onehot[i*NumClasses+l] = 1
	}
	g := gorgonia.NewGraph()
	scores := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(n, NumClasses), gorgonia.WithName("scores"), gorgonia.WithValue(tensor.New(tensor.WithShape(n, NumClasses), tensor.WithBacking(append([]float64(nil), logits...)))))
	target := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(n, NumClasses), gorgonia.WithName("target"), gorgonia.WithValue(tensor.New(tensor.WithShape(n, NumClasses), tensor.WithBacking(onehot))))
	cost, err := SoftmaxCrossEntropyLoss(scores, target, LossReductionMean)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gorgonia.Grad(cost, scores); err != nil {
		t.Fatal(err)
	}
	tm := gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(scores))
	defer tm.Close()
	if err := tm.RunAll(); err != nil {
		t.Fatal(err)
	}
	gradVal, err := scores.Grad()
	if err != nil {
		t.Fatal(err)
	}
	grad := gradVal.Data().([]float64)
	// d(mean CE)/d(x[i,j]) = (softmax(x)[i,j] - y[i,j]) / N
	for i := 0; i < n; i++ {
		row := logits[i*NumClasses : (i+1)*NumClasses]
		for j := range row {
			p := math.Exp(-referenceLoss(row, j))
			want := (p - onehot[i*NumClasses+j]) / n
			if got := grad[i*NumClasses+j]; math.Abs(got-want) > 1e-9 {
				t.Errorf("grad [%d,%d]: expected %v, got %v", i, j, want, got)
			}
		}
	}
}

func TestSoftmaxCrossEntropyLargeScores(t *testing.T) {
	logits := make([]float64, 2*NumClasses)
	logits[0] = 1000
	logits[1] = -1000
	logits[NumClasses+3] = -800
	logits[NumClasses+4] = 750
	got := evalLoss(t, logits, []int{1, 4}, LossReductionSum)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("loss must be finite, got %v", got)
	}
	want := referenceLoss(logits[:NumClasses], 1) + referenceLoss(logits[NumClasses:], 4)
	if math.Abs(got-want) > 1e-9*want {
		t.Errorf("expected %v, got %v", want, got)
	}
}
