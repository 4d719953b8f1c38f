package cnn_go

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

func TestLoaderLen(t *testing.T) {
	cases := []struct {
		m, b, want int
	}{
		{m: 0, b: 4, want: 0},
		{m: 3, b: 4, want: 0},
		{m: 4, b: 4, want: 1},
		{m: 10, b: 3, want: 3},
		{m: 50000, b: 64, want: 781},
		{m: 10000, b: 64, want: 156},
	}
	for _, c := range cases {
		loader, err := NewLoader(indexedDataset{n: c.m}, c.b, 2)
		if err != nil {
			t.Fatal(err)
		}
		if loader.Len() != c.want {
			t.Errorf("M=%d B=%d: expected %d batches, got %d", c.m, c.b, c.want, loader.Len())
		}
	}
}

func TestLoaderOrderAndCoverage(t *testing.T) {
	for _, workers := range []int{1, 2, 7} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			const m, b = 23, 3
			loader, err := NewLoader(indexedDataset{n: m}, b, workers)
			if err != nil {
				t.Fatal(err)
			}
			it := loader.Iterate(context.Background())
			defer it.Close()
			batches, next := 0, 0
			for it.Next() {
				batch := it.Batch()
				if batch.Index != batches {
					t.Fatalf("expected batch #%d, got #%d", batches, batch.Index)
				}
				if batch.Size() != b {
					t.Fatalf("expected %d samples, got %d", b, batch.Size())
				}
				data := batch.Images.Data().([]float64)
				onehot := batch.OneHot.Data().([]float64)
				for j := 0; j < b; j++ {
					if int(data[j*ImageSize]) != next {
						t.Fatalf("batch #%d position %d: expected sample %d, got %v", batch.Index, j, next, data[j*ImageSize])
					}
					if batch.Labels[j] != next%NumClasses {
						t.Fatalf("sample %d: expected label %d, got %d", next, next%NumClasses, batch.Labels[j])
					}
					if onehot[j*NumClasses+batch.Labels[j]] != 1 {
						t.Fatalf("sample %d: one-hot is not set for label %d", next, batch.Labels[j])
					}
					next++
				}
				batches++
			}
			if err := it.Err(); err != nil {
				t.Fatal(err)
			}
			if batches != m/b {
				t.Errorf("expected %d batches, got %d", m/b, batches)
			}
			if next != b*(m/b) {
				t.Errorf("expected %d covered samples, got %d", b*(m/b), next)
			}
		})
	}
}

func TestLoaderRestartable(t *testing.T) {
	loader, err := NewLoader(indexedDataset{n: 40}, 4, 2)
	if err != nil {
		t.Fatal(err)
	}
	for pass := 0; pass < 3; pass++ {
		it := loader.Iterate(context.Background())
		count := 0
		for it.Next() {
			if got := int(it.Batch().Images.Data().([]float64)[0]); got != count*4 {
				t.Fatalf("pass %d: batch #%d starts with sample %d", pass, count, got)
			}
			count++
		}
		if err := it.Err(); err != nil {
			t.Fatal(err)
		}
		if count != 10 {
			t.Fatalf("pass %d: expected 10 batches, got %d", pass, count)
		}
	}
}

func TestLoaderEarlyClose(t *testing.T) {
	loader, err := NewLoader(indexedDataset{n: 1000}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	it := loader.Iterate(context.Background())
	for i := 0; i < 3; i++ {
		if !it.Next() {
			t.Fatalf("expected batch #%d", i)
		}
	}
	it.Close()
	if it.Next() {
		t.Fatal("closed iterator must not yield batches")
	}
}

type failingDataset struct {
	indexedDataset
	failAt int
}

var errBrokenSample = errors.New("broken sample")

func (ds failingDataset) Sample(i int) (Sample, error) {
	if i == ds.failAt {
		return Sample{}, errBrokenSample
	}
	return ds.indexedDataset.Sample(i)
}

func TestLoaderPropagatesSampleError(t *testing.T) {
	loader, err := NewLoader(failingDataset{indexedDataset: indexedDataset{n: 20}, failAt: 9}, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	it := loader.Iterate(context.Background())
	defer it.Close()
	count := 0
	for it.Next() {
		count++
	}
	if !errors.Is(it.Err(), errBrokenSample) {
		t.Fatalf("expected broken sample error, got %v", it.Err())
	}
	if count > 4 {
		t.Fatalf("batches after the broken one must not be yielded, got %d", count)
	}
}

func TestNewLoaderValidation(t *testing.T) {
	if _, err := NewLoader(nil, 1, 1); err == nil {
		t.Error("nil dataset must be rejected")
	}
	if _, err := NewLoader(indexedDataset{n: 1}, 0, 1); err == nil {
		t.Error("zero batch size must be rejected")
	}
	if _, err := NewLoader(indexedDataset{n: 1}, 1, 0); err == nil {
		t.Error("zero workers must be rejected")
	}
}
