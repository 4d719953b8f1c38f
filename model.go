package cnn_go

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Learner Something which makes one optimization step on a batch and reports loss of that batch
type Learner interface {
	TrainStep(b *Batch) (float64, error)
}

// Predictor Something which scores a batch without changing its parameters
type Predictor interface {
	Predict(b *Batch) (*Prediction, error)
}

// Prediction Output of inference on a batch
//
// Scores - raw class scores, one row per sample
// SumLoss - cross entropy summed over samples of batch
//
type Prediction struct {
	Scores  [][]float64
	SumLoss float64
}

// Model Classifier wired for training and for inference.
//
// Graphs share the same Parameters:
//   training graph - forward pass, mean cross entropy, gradients; parameters are updated by momentum solver
//   inference graph - forward pass and summed cross entropy only, no gradients
//
// Graph shapes are static, so inference graphs for sizes other than BatchSize are built on first use by Forward.
//
type Model struct {
	batchSize int
	params    *Parameters

	trainNet    *Classifier
	trainInput  *gorgonia.Node
	trainTarget *gorgonia.Node
	trainCost   gorgonia.Value
	trainVM     gorgonia.VM
	solver      gorgonia.Solver

	eval  *inferenceGraph
	extra map[int]*inferenceGraph
}

// inferenceGraph No-gradient graph for batches of fixed size
type inferenceGraph struct {
	net    *Classifier
	input  *gorgonia.Node
	target *gorgonia.Node
	scores gorgonia.Value
	cost   gorgonia.Value
	vm     gorgonia.VM
}

func newInferenceGraph(params *Parameters, size int) (*inferenceGraph, error) {
	g := gorgonia.NewGraph()
	ig := &inferenceGraph{
		net: NewClassifier(g, params, fmt.Sprintf("classifier_eval%d", size)),
	}
	ig.input = gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(size, ImageChannels, ImageHeight, ImageWidth), gorgonia.WithName("classifier_eval_input"))
	if err := ig.net.Fwd(ig.input, size); err != nil {
		return nil, errors.Wrap(err, "Can't define feedforward for inference graph")
	}
	ig.target = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(size, NumClasses), gorgonia.WithName("classifier_eval_label"))
	cost, err := SoftmaxCrossEntropyLoss(ig.net.Out(), ig.target, LossReductionSum)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define loss for inference graph")
	}
	gorgonia.WithName("classifier_eval_loss")(cost)
	gorgonia.Read(ig.net.Out(), &ig.scores)
	gorgonia.Read(cost, &ig.cost)
	ig.vm = gorgonia.NewTapeMachine(g)
	return ig, nil
}

// NewModel Builds training and inference graphs for batches of cfg.BatchSize samples
//
// rng - generator for initial parameters' values
//
func NewModel(cfg Config, rng *rand.Rand) (*Model, error) {
	return NewModelWithParameters(cfg, NewParameters(rng))
}

// NewModelWithParameters Same as NewModel but uses existing parameters
func NewModelWithParameters(cfg Config, params *Parameters) (*Model, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, but got %d", cfg.BatchSize)
	}
	m := &Model{
		batchSize: cfg.BatchSize,
		params:    params,
		extra:     make(map[int]*inferenceGraph),
	}
	imgShape := tensor.Shape{cfg.BatchSize, ImageChannels, ImageHeight, ImageWidth}

	/* Training graph */
	trainGraph := gorgonia.NewGraph()
	m.trainNet = NewClassifier(trainGraph, params, "classifier")
	m.trainInput = gorgonia.NewTensor(trainGraph, gorgonia.Float64, 4, gorgonia.WithShape(imgShape...), gorgonia.WithName("classifier_train_input"))
	if err := m.trainNet.Fwd(m.trainInput, cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't define feedforward for training graph")
	}
	m.trainTarget = gorgonia.NewMatrix(trainGraph, gorgonia.Float64, gorgonia.WithShape(cfg.BatchSize, NumClasses), gorgonia.WithName("classifier_train_label"))
	cost, err := SoftmaxCrossEntropyLoss(m.trainNet.Out(), m.trainTarget, LossReductionMean)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define loss for training graph")
	}
	gorgonia.WithName("classifier_train_loss")(cost)
	gorgonia.Read(cost, &m.trainCost)
	if _, err = gorgonia.Grad(cost, m.trainNet.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients")
	}
	m.trainVM = gorgonia.NewTapeMachine(trainGraph, gorgonia.BindDualValues(m.trainNet.Learnables()...))
	m.solver = gorgonia.NewMomentum(gorgonia.WithLearnRate(cfg.LearningRate), gorgonia.WithMomentum(cfg.Momentum))

	/* Inference graph */
	if m.eval, err = newInferenceGraph(params, cfg.BatchSize); err != nil {
		m.trainVM.Close()
		return nil, err
	}
	return m, nil
}

// BatchSize Returns number of samples the graphs are built for
func (m *Model) BatchSize() int {
	return m.batchSize
}

// Parameters Returns learnable tensors
func (m *Model) Parameters() *Parameters {
	return m.params
}

// Learnables Returns learnables nodes of training graph
func (m *Model) Learnables() gorgonia.Nodes {
	return m.trainNet.Learnables()
}

// TrainStep Runs forward and backward pass for batch and applies one solver step. Returns mean cross entropy of batch
func (m *Model) TrainStep(b *Batch) (float64, error) {
	if err := checkBatch(b, m.batchSize); err != nil {
		return 0, err
	}
	// Tape machine is reset after every run so gradients never accumulate between steps
	defer m.trainVM.Reset()
	if err := gorgonia.Let(m.trainInput, b.Images); err != nil {
		return 0, errors.Wrap(err, "Can't init input value")
	}
	if err := gorgonia.Let(m.trainTarget, b.OneHot); err != nil {
		return 0, errors.Wrap(err, "Can't init label value")
	}
	if err := m.trainVM.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run VM")
	}
	loss, err := scalarValue(m.trainCost)
	if err != nil {
		return 0, errors.Wrap(err, "Can't read loss")
	}
	if err := m.solver.Step(gorgonia.NodesToValueGrads(m.trainNet.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't make solver step")
	}
	return loss, nil
}

// Predict Scores batch of BatchSize samples on inference graph
func (m *Model) Predict(b *Batch) (*Prediction, error) {
	if err := checkBatch(b, m.batchSize); err != nil {
		return nil, err
	}
	return m.predict(m.eval, b)
}

// Forward Returns raw class scores for images of shape (N, 3, 32, 32). Any N > 0 is accepted
func (m *Model) Forward(images *tensor.Dense) ([][]float64, error) {
	if images == nil || images.Dims() != 4 {
		return nil, errors.New("images must have shape (N, 3, 32, 32)")
	}
	n := images.Shape()[0]
	ig := m.eval
	if n != m.batchSize {
		var err error
		if ig, err = m.inferenceFor(n); err != nil {
			return nil, err
		}
	}
	b := &Batch{
		Images: images,
		Labels: make([]int, n),
		OneHot: tensor.New(tensor.WithShape(n, NumClasses), tensor.Of(tensor.Float64)),
	}
	if err := checkBatch(b, n); err != nil {
		return nil, err
	}
	pred, err := m.predict(ig, b)
	if err != nil {
		return nil, err
	}
	return pred.Scores, nil
}

// Close Releases tape machines
func (m *Model) Close() error {
	errTrain := m.trainVM.Close()
	errEval := m.eval.vm.Close()
	for _, ig := range m.extra {
		ig.vm.Close()
	}
	if errTrain != nil {
		return errTrain
	}
	return errEval
}

func (m *Model) inferenceFor(n int) (*inferenceGraph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of images must be > 0, but got %d", n)
	}
	if ig, ok := m.extra[n]; ok {
		return ig, nil
	}
	ig, err := newInferenceGraph(m.params, n)
	if err != nil {
		return nil, err
	}
	m.extra[n] = ig
	return ig, nil
}

func (m *Model) predict(ig *inferenceGraph, b *Batch) (*Prediction, error) {
	if err := m.syncParameters(ig); err != nil {
		return nil, err
	}
	defer ig.vm.Reset()
	if err := gorgonia.Let(ig.input, b.Images); err != nil {
		return nil, errors.Wrap(err, "Can't init input value")
	}
	if err := gorgonia.Let(ig.target, b.OneHot); err != nil {
		return nil, errors.Wrap(err, "Can't init label value")
	}
	if err := ig.vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run VM")
	}
	scores, err := rowsValue(ig.scores, NumClasses)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read scores")
	}
	sumLoss, err := scalarValue(ig.cost)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read loss")
	}
	return &Prediction{Scores: scores, SumLoss: sumLoss}, nil
}

// syncParameters Binds current values of training learnables to inference graph.
// Tensors are normally shared already; binding keeps graphs consistent even when solver has replaced a value.
func (m *Model) syncParameters(ig *inferenceGraph) error {
	src := m.trainNet.Learnables()
	dst := ig.net.Learnables()
	if len(src) != len(dst) {
		return fmt.Errorf("training graph has %d learnables, but inference graph has %d", len(src), len(dst))
	}
	for i := range src {
		if err := gorgonia.Let(dst[i], src[i].Value()); err != nil {
			return errors.Wrap(err, fmt.Sprintf("Can't bind value of '%s'", src[i].Name()))
		}
	}
	return nil
}

func checkBatch(b *Batch, size int) error {
	if b == nil || b.Images == nil || b.OneHot == nil {
		return errors.New("batch is empty")
	}
	imgShape := tensor.Shape{size, ImageChannels, ImageHeight, ImageWidth}
	if !b.Images.Shape().Eq(imgShape) {
		return fmt.Errorf("images must have shape %v, but got %v", imgShape, b.Images.Shape())
	}
	if !b.OneHot.Shape().Eq(tensor.Shape{size, NumClasses}) {
		return fmt.Errorf("labels must have shape %v, but got %v", tensor.Shape{size, NumClasses}, b.OneHot.Shape())
	}
	return nil
}

// scalarValue Extracts single float64 from value produced by reduction
func scalarValue(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, errors.New("value is nil")
	}
	switch d := v.Data().(type) {
	case float64:
		return d, nil
	case []float64:
		if len(d) != 1 {
			return 0, fmt.Errorf("expected single value, but got %d", len(d))
		}
		return d[0], nil
	default:
		return 0, fmt.Errorf("unexpected data type %T", d)
	}
}

// rowsValue Copies (N, cols) value into slice of rows
func rowsValue(v gorgonia.Value, cols int) ([][]float64, error) {
	if v == nil {
		return nil, errors.New("value is nil")
	}
	data, ok := v.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected data type %T", v.Data())
	}
	if len(data)%cols != 0 {
		return nil, fmt.Errorf("%d values can't be split into rows of %d", len(data), cols)
	}
	rows := make([][]float64, len(data)/cols)
	for i := range rows {
		rows[i] = append([]float64(nil), data[i*cols:(i+1)*cols]...)
	}
	return rows, nil
}
