package cnn_go

import (
	"fmt"
)

// Sample Single labeled image. Image is stored in CHW order with values in [0;1]
type Sample struct {
	Image []float64
	Label int
}

// Dataset Indexable ordered collection of samples
type Dataset interface {
	Len() int
	Sample(i int) (Sample, error)
}

// MemoryDataset Dataset which holds already decoded samples
type MemoryDataset struct {
	Samples []Sample
}

// NewMemoryDataset Returns dataset over provided samples. Every image must hold exactly ImageSize values
func NewMemoryDataset(samples []Sample) (*MemoryDataset, error) {
	for i := range samples {
		if len(samples[i].Image) != ImageSize {
			return nil, fmt.Errorf("sample #%d has %d values, but %d expected", i, len(samples[i].Image), ImageSize)
		}
		if samples[i].Label < 0 || samples[i].Label >= NumClasses {
			return nil, fmt.Errorf("sample #%d has label %d out of range [0;%d)", i, samples[i].Label, NumClasses)
		}
	}
	return &MemoryDataset{Samples: samples}, nil
}

// Len Returns number of samples
func (ds *MemoryDataset) Len() int { return len(ds.Samples) }

// Sample Returns i-th sample
func (ds *MemoryDataset) Sample(i int) (Sample, error) {
	if i < 0 || i >= len(ds.Samples) {
		return Sample{}, fmt.Errorf("sample index %d out of range [0;%d)", i, len(ds.Samples))
	}
	return ds.Samples[i], nil
}
