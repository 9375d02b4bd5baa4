// Copyright © 2023 Sloan Childers
package opencv

import (
	"fmt"
	"image"

	"github.com/osintami/sentrycam/base"
	"gocv.io/x/gocv"
)

// VideoWriter encodes a clip with an OpenCV codec such as MJPG or XVID.
type VideoWriter struct {
	writer *gocv.VideoWriter
	size   image.Point
}

func NewVideoWriter(codec string) base.ClipWriterFactory {
	return func(path string, fps float64, width, height int) (base.IClipWriter, error) {
		writer, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
		if err != nil {
			return nil, err
		}
		if !writer.IsOpened() {
			writer.Close()
			return nil, fmt.Errorf("video writer %s codec %s not available", path, codec)
		}
		return &VideoWriter{writer: writer, size: image.Pt(width, height)}, nil
	}
}

// Write scales frames that do not match the clip size, which happens when
// the camera resolution changes mid-session.
func (x *VideoWriter) Write(frame base.IFrame) error {
	mat, owned, err := toMat(frame)
	if err != nil {
		return err
	}
	if owned {
		defer mat.Close()
	}
	if mat.Cols() != x.size.X || mat.Rows() != x.size.Y {
		scaled := gocv.NewMat()
		defer scaled.Close()
		gocv.Resize(mat, &scaled, x.size, 0, 0, gocv.InterpolationLinear)
		return x.writer.Write(scaled)
	}
	return x.writer.Write(mat)
}

func (x *VideoWriter) Close() error {
	return x.writer.Close()
}

// NewClipWriter picks the clip writer for a camera's recording format.
func NewClipWriter(config *base.RecordingConfig) base.ClipWriterFactory {
	if config.Format == base.FORMAT_MJPEG {
		return base.NewMjpegWriter(config.Quality)
	}
	return NewVideoWriter(config.Codec)
}
