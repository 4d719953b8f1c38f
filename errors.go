package cnn_go

import (
	"github.com/pkg/errors"
)

var (
	// ErrDataUnavailable Dataset files are absent under the configured root and downloading is disabled
	ErrDataUnavailable = errors.New("dataset is not available locally")
	// ErrDeviceUnavailable Requested accelerator is absent. SelectDevice never returns it: it is only logged on fallback to CPU
	ErrDeviceUnavailable = errors.New("requested device is not available")
	// ErrTrainingDivergence Loss became NaN or Inf
	ErrTrainingDivergence = errors.New("training diverged: non-finite loss")
)
