package cnn_go

import (
	"math/rand"
	"testing"
)

// syntheticSamples Images whose brightest channel depends on label, so classes are separable
func syntheticSamples(n int, rng *rand.Rand) []Sample {
	samples := make([]Sample, n)
	plane := ImageHeight * ImageWidth
	for i := range samples {
		label := i % NumClasses
		img := make([]float64, ImageSize)
		for j := range img {
			img[j] = 0.1 * rng.Float64()
		}
		ch := label % ImageChannels
		for j := 0; j < plane; j++ {
			if (j/ImageWidth)%(label+1) == 0 {
				img[ch*plane+j] += 0.8
			}
		}
		samples[i] = Sample{Image: img, Label: label}
	}
	return samples
}

func syntheticDataset(t *testing.T, n int, seed int64) *MemoryDataset {
	t.Helper()
	ds, err := NewMemoryDataset(syntheticSamples(n, rand.New(rand.NewSource(seed))))
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

// indexedDataset Dataset where label and first pixel encode sample index. Used to check ordering
type indexedDataset struct {
	n int
}

func (ds indexedDataset) Len() int { return ds.n }

func (ds indexedDataset) Sample(i int) (Sample, error) {
	img := make([]float64, ImageSize)
	img[0] = float64(i)
	return Sample{Image: img, Label: i % NumClasses}, nil
}

func testConfig(batchSize int) Config {
	cfg := DefaultConfig()
	cfg.BatchSize = batchSize
	return cfg
}
