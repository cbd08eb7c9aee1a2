package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Device identifies where a model runs: "cpu" or "cuda[:N]".
type Device struct {
	Kind  string
	Index int
}

// CPU is the default device.
var CPU = Device{Kind: "cpu"}

// ParseDevice parses "cpu", "cuda" or "cuda:N". An empty string means CPU.
func ParseDevice(s string) (Device, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "cpu":
		return CPU, nil
	case s == "cuda" || s == "gpu":
		return Device{Kind: "cuda"}, nil
	case strings.HasPrefix(s, "cuda:"):
		idx, err := strconv.Atoi(strings.TrimPrefix(s, "cuda:"))
		if err != nil || idx < 0 {
			return Device{}, fmt.Errorf("invalid cuda device %q", s)
		}
		return Device{Kind: "cuda", Index: idx}, nil
	}
	return Device{}, fmt.Errorf("unsupported device %q", s)
}

// IsAccelerator reports whether the device is a GPU.
func (d Device) IsAccelerator() bool {
	return d.Kind == "cuda"
}

func (d Device) String() string {
	if d.Kind == "" {
		return "cpu"
	}
	if d.IsAccelerator() {
		return fmt.Sprintf("cuda:%d", d.Index)
	}
	return d.Kind
}
