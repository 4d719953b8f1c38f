package cnn_go

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ProgressRecord Snapshot of training progress
//
// Seen - number of samples consumed before current batch (batchIndex*batchSize)
// Total - number of samples in training dataset
// Percent - 100*batchIndex/numberOfBatches
// Final - true when record closes truncated epoch
//
type ProgressRecord struct {
	Epoch   int
	Batch   int
	Seen    int
	Total   int
	Percent float64
	Loss    float64
	Final   bool
}

// String Formats record as training console line
func (r ProgressRecord) String() string {
	return fmt.Sprintf("Train Epoch: %d [%d/%d (%.0f%%)]\tLoss: %.6f", r.Epoch, r.Seen, r.Total, r.Percent, r.Loss)
}

// EvalResult Outcome of evaluation on held-out set
//
// Accuracy - percent of correctly classified samples in [0;100]
//
type EvalResult struct {
	Epoch    int
	MeanLoss float64
	Accuracy float64
	Correct  int
	Total    int
}

// String Formats result as summary console line
func (r EvalResult) String() string {
	return fmt.Sprintf("[%d] Test Loss: %.4f, Accuracy: %.2f%%", r.Epoch, r.MeanLoss, r.Accuracy)
}

// Reporter Sink for console lines of an experiment. Safe for concurrent use
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	records []ProgressRecord
}

// NewReporter Creates reporter writing to w
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// NewRecordReporter Creates reporter appending to file at pathName. Parent directory is created when missing
func NewRecordReporter(pathName string) (*Reporter, error) {
	if err := os.MkdirAll(filepath.Dir(pathName), 0755); err != nil {
		return nil, errors.Wrapf(err, "Can't create directory for %s", pathName)
	}
	f, err := os.OpenFile(pathName, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open record file %s", pathName)
	}
	return &Reporter{w: f, closer: f}, nil
}

// Start Prints start timestamp
func (r *Reporter) Start(t time.Time) error {
	return r.println(t.Format("2006-01-02 15:04:05.000000"))
}

// Progress Prints training progress record and keeps it for later plotting
func (r *Reporter) Progress(rec ProgressRecord) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return r.println(rec.String())
}

// Result Prints evaluation summary
func (r *Reporter) Result(res EvalResult) error {
	return r.println(res.String())
}

// Records Returns copy of progress records emitted so far
func (r *Reporter) Records() []ProgressRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressRecord(nil), r.records...)
}

// Close Closes underlying file if reporter owns one
func (r *Reporter) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reporter) println(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := fmt.Fprintln(r.w, line); err != nil {
		return errors.Wrap(err, "Can't write report line")
	}
	return nil
}
