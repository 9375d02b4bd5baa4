// Copyright © 2023 Sloan Childers
package opencv

import (
	"fmt"
	"time"

	"github.com/osintami/sentrycam/base"
	"gocv.io/x/gocv"
)

// Frame is a decoded BGR image owned by exactly one holder. Clone before
// handing it to another goroutine.
type Frame struct {
	mat       gocv.Mat
	frameTime time.Time
	closed    bool
}

func NewFrame(mat gocv.Mat, frameTime time.Time) *Frame {
	return &Frame{mat: mat, frameTime: frameTime}
}

func (x *Frame) Width() int {
	if x.closed {
		return 0
	}
	return x.mat.Cols()
}

func (x *Frame) Height() int {
	if x.closed {
		return 0
	}
	return x.mat.Rows()
}

func (x *Frame) Empty() bool {
	return x.closed || x.mat.Empty()
}

func (x *Frame) Time() time.Time {
	return x.frameTime
}

func (x *Frame) Mat() gocv.Mat {
	return x.mat
}

func (x *Frame) ToJpeg(quality int) ([]byte, error) {
	if x.Empty() {
		return nil, base.ErrEmptyFrame
	}
	return encode(x.mat, quality)
}

func (x *Frame) Clone() base.IFrame {
	if x.closed {
		return &Frame{mat: gocv.NewMat(), frameTime: x.frameTime}
	}
	return &Frame{mat: x.mat.Clone(), frameTime: x.frameTime}
}

func (x *Frame) Close() {
	if x.closed {
		return
	}
	x.closed = true
	x.mat.Close()
}

func encode(mat gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return base.Copy(buf.GetBytes()), nil
}

// toMat returns a Mat for any frame. The bool reports whether the caller
// owns the Mat and must close it.
func toMat(frame base.IFrame) (gocv.Mat, bool, error) {
	if f, ok := frame.(*Frame); ok {
		if f.Empty() {
			return gocv.Mat{}, false, base.ErrEmptyFrame
		}
		return f.mat, false, nil
	}
	data, err := frame.ToJpeg(100)
	if err != nil {
		return gocv.Mat{}, false, err
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, false, err
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, false, fmt.Errorf("JPEG decode: %w", base.ErrEmptyFrame)
	}
	return mat, true, nil
}
