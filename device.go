package cnn_go

import (
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
)

const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Device Compute device selected for the whole run
//
// Name - device actually used
// Requested - device asked for
// Fallback - reason of falling back to CPU, nil when request was satisfied
//
type Device struct {
	Name      string
	Requested string
	Fallback  error
}

// String Human readable description of device
func (d Device) String() string {
	if d.Name != DeviceCPU {
		return d.Name
	}
	features := []string{}
	for _, f := range []cpuid.FeatureID{cpuid.SSE4, cpuid.AVX, cpuid.AVX2, cpuid.FMA3, cpuid.AVX512F} {
		if cpuid.CPU.Supports(f) {
			features = append(features, f.String())
		}
	}
	return fmt.Sprintf("cpu (%s, %d physical cores, features: %s)", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, strings.Join(features, ","))
}

// SelectDevice Picks compute device once at start.
//
// Graphs are executed by gorgonia's CPU tape machine in this build, so any accelerator request silently falls back to CPU.
// Reason of fallback is kept in Device.Fallback for logging.
//
func SelectDevice(requested string) Device {
	req := strings.ToLower(strings.TrimSpace(requested))
	switch req {
	case "", DeviceCPU:
		return Device{Name: DeviceCPU, Requested: DeviceCPU}
	default:
		return Device{
			Name:      DeviceCPU,
			Requested: req,
			Fallback:  errors.Wrapf(ErrDeviceUnavailable, "device '%s' is not supported by CPU build", req),
		}
	}
}
