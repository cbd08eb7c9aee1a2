package modelcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/soundprediction/contradict/pkg/types"
)

// ErrNoAccelerator is returned by monitors for devices without accelerator memory.
var ErrNoAccelerator = errors.New("no accelerator memory to monitor")

// MemoryMonitor reports accelerator memory utilisation as a fraction in [0, 1].
type MemoryMonitor interface {
	Utilization(ctx context.Context) (float64, error)
}

// NoopMonitor is used for CPU devices.
type NoopMonitor struct{}

// Utilization always reports ErrNoAccelerator.
func (NoopMonitor) Utilization(context.Context) (float64, error) {
	return 0, ErrNoAccelerator
}

// NVMLMonitor queries an NVIDIA GPU through NVML.
type NVMLMonitor struct {
	mu     sync.Mutex
	index  int
	inited bool
}

// NewMonitor returns an NVMLMonitor for CUDA devices and a NoopMonitor otherwise.
func NewMonitor(device types.Device) MemoryMonitor {
	if !device.IsAccelerator() {
		return NoopMonitor{}
	}
	return &NVMLMonitor{index: device.Index}
}

// Utilization returns used/total memory of the monitored GPU.
func (m *NVMLMonitor) Utilization(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.inited {
		if ret := nvml.Init(); ret != nvml.SUCCESS {
			return 0, fmt.Errorf("nvml init: %s", nvml.ErrorString(ret))
		}
		m.inited = true
	}

	device, ret := nvml.DeviceGetHandleByIndex(m.index)
	if ret != nvml.SUCCESS {
		return 0, fmt.Errorf("nvml device %d: %s", m.index, nvml.ErrorString(ret))
	}
	mem, ret := device.GetMemoryInfo()
	if ret != nvml.SUCCESS {
		return 0, fmt.Errorf("nvml memory info for device %d: %s", m.index, nvml.ErrorString(ret))
	}
	if mem.Total == 0 {
		return 0, ErrNoAccelerator
	}
	return float64(mem.Used) / float64(mem.Total), nil
}

// Close shuts NVML down if it was initialised.
func (m *NVMLMonitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inited {
		return nil
	}
	m.inited = false
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("nvml shutdown: %s", nvml.ErrorString(ret))
	}
	return nil
}
