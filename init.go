package cnn_go

import (
	"math"
	"math/rand"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// UniformFanIn Returns gorgonia's initialization function which draws values from U(-1/sqrt(fanIn), 1/sqrt(fanIn)).
// That's the default initialization of convolutional and linear layers in most of frameworks.
// Values are taken from provided generator (not global one) so initialization is reproducible for fixed seed.
func UniformFanIn(rng *rand.Rand, fanIn int) gorgonia.InitWFn {
	bound := 1.0 / math.Sqrt(float64(fanIn))
	return func(dt tensor.Dtype, s ...int) interface{} {
		size := tensor.Shape(s).TotalSize()
		switch dt {
		case tensor.Float64:
			data := make([]float64, size)
			for i := range data {
				data[i] = (2*rng.Float64() - 1) * bound
			}
			return data
		case tensor.Float32:
			data := make([]float32, size)
			for i := range data {
				data[i] = float32((2*rng.Float64() - 1) * bound)
			}
			return data
		default:
			panic("UniformFanIn supports Float64 and Float32 only")
		}
	}
}

// newParam Allocates tensor of provided shape filled by init function
func newParam(init gorgonia.InitWFn, shape ...int) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(init(tensor.Float64, shape...)))
}
