// Copyright © 2023 Sloan Childers
package opencv

import (
	"image/color"

	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

var green = color.RGBA{0, 255, 0, 0}

// Annotator draws detection boxes onto preview frames.
type Annotator struct {
	color     color.RGBA
	thickness int
}

func NewAnnotator() *Annotator {
	return &Annotator{color: green, thickness: 2}
}

// Annotate draws in place on OpenCV frames. Other frames are decoded,
// released and replaced by an annotated OpenCV frame.
func (x *Annotator) Annotate(frame base.IFrame, boxes []base.BoundingBox) base.IFrame {
	mat, owned, err := toMat(frame)
	if err != nil {
		log.Warn().Err(err).Str("component", "annotator").Msg("decode")
		return frame
	}
	for _, box := range boxes {
		gocv.Rectangle(&mat, box.Rect(), x.color, x.thickness)
	}
	if !owned {
		return frame
	}
	out := NewFrame(mat, frame.Time())
	frame.Close()
	return out
}
