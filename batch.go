package cnn_go

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"
)

// Batch Fixed-size group of consecutive samples
//
// Index - position of batch in the epoch
// Images - tensor of shape (N, 3, 32, 32)
// Labels - class indices
// OneHot - one-hot encoded labels of shape (N, 10)
//
type Batch struct {
	Index  int
	Images *tensor.Dense
	Labels []int
	OneHot *tensor.Dense
}

// Size Returns number of samples in batch
func (b *Batch) Size() int {
	return len(b.Labels)
}

// Loader Splits dataset into batches of fixed size in dataset order. Trailing incomplete batch is dropped.
type Loader struct {
	ds        Dataset
	batchSize int
	workers   int
	prefetch  int
}

// NewLoader Creates loader over provided dataset
//
// batchSize - number of samples in each batch
// workers - number of goroutines which decode batches ahead of consumer
//
func NewLoader(ds Dataset, batchSize, workers int) (*Loader, error) {
	if ds == nil {
		return nil, errors.New("dataset is nil")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, but got %d", batchSize)
	}
	if workers <= 0 {
		return nil, fmt.Errorf("number of workers must be > 0, but got %d", workers)
	}
	return &Loader{
		ds:        ds,
		batchSize: batchSize,
		workers:   workers,
		prefetch:  2 * workers,
	}, nil
}

// Len Returns number of full batches
func (l *Loader) Len() int {
	return l.ds.Len() / l.batchSize
}

// BatchSize Returns number of samples in each batch
func (l *Loader) BatchSize() int {
	return l.batchSize
}

// Dataset Returns underlying dataset
func (l *Loader) Dataset() Dataset {
	return l.ds
}

// Batch Assembles i-th batch synchronously
func (l *Loader) Batch(i int) (*Batch, error) {
	if i < 0 || i >= l.Len() {
		return nil, fmt.Errorf("batch index %d out of range [0;%d)", i, l.Len())
	}
	images := make([]float64, l.batchSize*ImageSize)
	onehot := make([]float64, l.batchSize*NumClasses)
	labels := make([]int, l.batchSize)
	for j := 0; j < l.batchSize; j++ {
		idx := i*l.batchSize + j
		s, err := l.ds.Sample(idx)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't load sample #%d of batch #%d", idx, i)
		}
		if len(s.Image) != ImageSize {
			return nil, fmt.Errorf("sample #%d has %d values, but %d expected", idx, len(s.Image), ImageSize)
		}
		if s.Label < 0 || s.Label >= NumClasses {
			return nil, fmt.Errorf("sample #%d has label %d out of range [0;%d)", idx, s.Label, NumClasses)
		}
		copy(images[j*ImageSize:], s.Image)
		onehot[j*NumClasses+s.Label] = 1
		labels[j] = s.Label
	}
	return &Batch{
		Index:  i,
		Images: tensor.New(tensor.WithShape(l.batchSize, ImageChannels, ImageHeight, ImageWidth), tensor.WithBacking(images)),
		Labels: labels,
		OneHot: tensor.New(tensor.WithShape(l.batchSize, NumClasses), tensor.WithBacking(onehot)),
	}, nil
}

// Iterate Starts new pass over dataset. Each call gives fresh iterator starting at batch #0.
// Caller must Close iterator when it is not drained to the end.
func (l *Loader) Iterate(ctx context.Context) *BatchIterator {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	n := l.Len()
	it := &BatchIterator{
		n:       n,
		cancel:  cancel,
		tokens:  make(chan struct{}, l.prefetch),
		results: make(chan *Batch, l.prefetch),
		pending: make(map[int]*Batch, l.prefetch),
	}
	jobs := make(chan int)

	// Producer: hands out batch indices in order, never more than prefetch ahead of consumer
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case it.tokens <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < l.workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				b, err := l.Batch(i)
				if err != nil {
					return err
				}
				select {
				case it.results <- b:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		it.waitErr = g.Wait()
		close(it.results)
	}()
	return it
}

// BatchIterator Lazy sequence of batches. Batches come out in dataset order regardless of workers scheduling
type BatchIterator struct {
	n       int
	next    int
	cur     *Batch
	pending map[int]*Batch
	tokens  chan struct{}
	results chan *Batch
	cancel  context.CancelFunc
	waitErr error
	err     error
	done    bool
}

// Next Advances iterator. Returns false when sequence is exhausted or failed (see Err)
func (it *BatchIterator) Next() bool {
	if it.done {
		return false
	}
	if it.next >= it.n {
		it.stop()
		it.err = it.waitErr
		return false
	}
	for {
		if b, ok := it.pending[it.next]; ok {
			delete(it.pending, it.next)
			it.next++
			<-it.tokens
			it.cur = b
			return true
		}
		b, ok := <-it.results
		if !ok {
			it.done = true
			it.cancel()
			it.err = it.waitErr
			if it.err == nil {
				it.err = fmt.Errorf("loader stopped after %d of %d batches", it.next, it.n)
			}
			return false
		}
		it.pending[b.Index] = b
	}
}

// Batch Returns current batch
func (it *BatchIterator) Batch() *Batch {
	return it.cur
}

// Err Returns error which stopped iteration if any
func (it *BatchIterator) Err() error {
	return it.err
}

// Close Stops workers and releases iterator
func (it *BatchIterator) Close() {
	if it.done {
		return
	}
	it.stop()
}

// stop Cancels workers and waits until they are gone
func (it *BatchIterator) stop() {
	it.done = true
	it.cancel()
	for range it.results {
	}
	it.pending = nil
}
