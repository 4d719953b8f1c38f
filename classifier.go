package cnn_go

import (
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Parameters Learnable tensors of the classifier.
//
// Tensors are shared by every graph built on top of them (training and inference), so an in-place update made by solver
// on training graph is seen by inference graph as well.
//
type Parameters struct {
	Conv1W, Conv1B *tensor.Dense
	Conv2W, Conv2B *tensor.Dense
	FC1W, FC1B     *tensor.Dense
	FC2W, FC2B     *tensor.Dense
	FC3W, FC3B     *tensor.Dense
}

// NewParameters Draws initial values of all parameters from provided generator
func NewParameters(rng *rand.Rand) *Parameters {
	conv1 := UniformFanIn(rng, 3*5*5)
	conv2 := UniformFanIn(rng, 6*5*5)
	fc1 := UniformFanIn(rng, 16*5*5)
	fc2 := UniformFanIn(rng, 120)
	fc3 := UniformFanIn(rng, 84)
	p := &Parameters{}
	p.Conv1W = newParam(conv1, 6, 3, 5, 5)
	p.Conv1B = newParam(conv1, 1, 6, 1, 1)
	p.Conv2W = newParam(conv2, 16, 6, 5, 5)
	p.Conv2B = newParam(conv2, 1, 16, 1, 1)
	p.FC1W = newParam(fc1, 120, 400)
	p.FC1B = newParam(fc1, 1, 120)
	p.FC2W = newParam(fc2, 84, 120)
	p.FC2B = newParam(fc2, 1, 84)
	p.FC3W = newParam(fc3, 10, 84)
	p.FC3B = newParam(fc3, 1, 10)
	return p
}

// Tensors Returns parameters in layer order: weight then bias for each learnable layer
func (p *Parameters) Tensors() []*tensor.Dense {
	return []*tensor.Dense{p.Conv1W, p.Conv1B, p.Conv2W, p.Conv2B, p.FC1W, p.FC1B, p.FC2W, p.FC2B, p.FC3W, p.FC3B}
}

// Classifier LeNet-like convolutional network for 3x32x32 images and 10 classes.
//
//	input(3,32,32) => filters=6,size=5x5,conv(6,28,28) => relu => maxpool(6,14,14)
//	=> filters=16,size=5x5,conv(16,10,10) => relu => maxpool(16,5,5)
//	=> flatten(400) => linear(120) => relu => linear(84) => relu => linear(10)
//
type Classifier struct {
	private *Network
}

// NewClassifier Binds parameters to nodes of provided graph and defines structure of the network
func NewClassifier(g *gorgonia.ExprGraph, params *Parameters, name string) *Classifier {
	node := func(t *tensor.Dense, suffix string) *gorgonia.Node {
		return gorgonia.NewTensor(g, gorgonia.Float64, t.Dims(), gorgonia.WithShape(t.Shape().Clone()...), gorgonia.WithName(name+"_"+suffix), gorgonia.WithValue(t))
	}
	return &Classifier{private: &Network{
		Name: name,
		Layers: []*Layer{
			{
				WeightNode:   node(params.Conv1W, "conv1_w"),
				BiasNode:     node(params.Conv1B, "conv1_b"),
				Type:         LayerConvolutional,
				Activation:   Rectify,
				KernelHeight: 5,
				KernelWidth:  5,
				Padding:      []int{0, 0},
				Stride:       []int{1, 1},
				Dilation:     []int{1, 1},
			},
			{
				Type:         LayerMaxpool,
				Activation:   NoActivation,
				KernelHeight: 2,
				KernelWidth:  2,
				Padding:      []int{0, 0},
				Stride:       []int{2, 2},
			},
			{
				WeightNode:   node(params.Conv2W, "conv2_w"),
				BiasNode:     node(params.Conv2B, "conv2_b"),
				Type:         LayerConvolutional,
				Activation:   Rectify,
				KernelHeight: 5,
				KernelWidth:  5,
				Padding:      []int{0, 0},
				Stride:       []int{1, 1},
				Dilation:     []int{1, 1},
			},
			{
				Type:         LayerMaxpool,
				Activation:   NoActivation,
				KernelHeight: 2,
				KernelWidth:  2,
				Padding:      []int{0, 0},
				Stride:       []int{2, 2},
			},
			{
				Type:       LayerFlatten,
				Activation: NoActivation,
			},
			{
				WeightNode: node(params.FC1W, "fc1_w"),
				BiasNode:   node(params.FC1B, "fc1_b"),
				Type:       LayerLinear,
				Activation: Rectify,
			},
			{
				WeightNode: node(params.FC2W, "fc2_w"),
				BiasNode:   node(params.FC2B, "fc2_b"),
				Type:       LayerLinear,
				Activation: Rectify,
			},
			{
				WeightNode: node(params.FC3W, "fc3_w"),
				BiasNode:   node(params.FC3B, "fc3_b"),
				Type:       LayerLinear,
				Activation: NoActivation,
			},
		},
	}}
}

// Out Returns reference to output node (raw class scores)
func (net *Classifier) Out() *gorgonia.Node {
	return net.private.Out()
}

// Learnables Returns learnables nodes
func (net *Classifier) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// Fwd Initializates feedforward for provided input
//
// input - Input node of shape (batchSize, 3, 32, 32)
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *Classifier) Fwd(input *gorgonia.Node, batchSize int) error {
	if err := net.private.Fwd(input, batchSize); err != nil {
		return errors.Wrap(err, "[Classifier]")
	}
	return nil
}
