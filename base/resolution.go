// Copyright © 2023 Sloan Childers
package base

import (
	"fmt"
	"strings"
)

// Resolution is a named frame size and its ESP32 framesize ordinal.
type Resolution struct {
	Name    string
	Width   int
	Height  int
	Ordinal int
}

var resolutions = []Resolution{
	{"QQVGA", 160, 120, 1},
	{"QCIF", 176, 144, 2},
	{"HQVGA", 240, 176, 3},
	{"240X240", 240, 240, 4},
	{"QVGA", 320, 240, 5},
	{"CIF", 400, 296, 6},
	{"HVGA", 480, 320, 7},
	{"VGA", 640, 480, 8},
	{"SVGA", 800, 600, 9},
	{"XGA", 1024, 768, 10},
	{"HD", 1280, 720, 11},
	{"SXGA", 1280, 1024, 12},
	{"UXGA", 1600, 1200, 13},
	{"FHD", 1920, 1080, 14},
	{"P_HD", 720, 1280, 15},
	{"P_3MP", 864, 1536, 16},
	{"QXGA", 2048, 1536, 17},
	{"QHD", 2560, 1440, 18},
	{"WQXGA", 2560, 1600, 19},
	{"P_FHD", 1080, 1920, 20},
	{"QSXGA", 2560, 1920, 21},
}

// LookupResolution accepts a preset name ("VGA") or a size ("640x480").
func LookupResolution(name string) (Resolution, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	for _, r := range resolutions {
		if r.Name == key || fmt.Sprintf("%dX%d", r.Width, r.Height) == key {
			return r, nil
		}
	}
	return Resolution{}, fmt.Errorf("%q: %w", name, ErrUnknownResolution)
}

func Resolutions() []Resolution {
	out := make([]Resolution, len(resolutions))
	copy(out, resolutions)
	return out
}

func (x Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d)", x.Name, x.Width, x.Height)
}
