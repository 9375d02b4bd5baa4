// Copyright © 2015 <Oleksandr Senkovych>
// Copyright © 2023 <Sloan Childers>
package base

import (
	"sort"

	"github.com/blackjack/webcam"
)

type Size struct {
	Size string
}
type Format struct {
	Name  string
	Sizes []Size
}
type Formats struct {
	Formats []Format
}

type FrameSizes []webcam.FrameSize

func (slice FrameSizes) Len() int {
	return len(slice)
}

// For sorting purposes
func (slice FrameSizes) Less(i, j int) bool {
	ls := slice[i].MaxWidth * slice[i].MaxHeight
	rs := slice[j].MaxWidth * slice[j].MaxHeight
	return ls < rs
}

// For sorting purposes
func (slice FrameSizes) Swap(i, j int) {
	slice[i], slice[j] = slice[j], slice[i]
}

// ListFormats describes every pixel format of an open V4L2 device with its
// frame sizes, smallest first.
func ListFormats(cam *webcam.Webcam) Formats {
	formats := Formats{}
	for formatObj, formatStr := range cam.GetSupportedFormats() {
		format := Format{Name: formatStr}
		fs := FrameSizes(cam.GetSupportedFrameSizes(formatObj))
		sort.Sort(fs)
		for _, frameSize := range fs {
			format.Sizes = append(format.Sizes, Size{Size: frameSize.GetString()})
		}
		formats.Formats = append(formats.Formats, format)
	}
	sort.Slice(formats.Formats, func(i, j int) bool {
		return formats.Formats[i].Name < formats.Formats[j].Name
	})
	return formats
}
