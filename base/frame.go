// Copyright © 2023 <Sloan Childers>
package base

import (
	"bufio"
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"time"
)

// JpegFrame is a frame that arrived already encoded, as it does from MJPEG
// cameras and V4L2 devices in MJPG mode.
type JpegFrame struct {
	width     int
	height    int
	jpeg      []byte
	frameTime time.Time
}

var ErrEmptyFrame = errors.New("empty frame")

// NewJpegFrame takes ownership of data.
func NewJpegFrame(data []byte, frameTime time.Time) (*JpegFrame, error) {
	if len(data) < 4 || !ValidateJPEG(data) {
		return nil, ErrEmptyFrame
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &JpegFrame{
		width:     cfg.Width,
		height:    cfg.Height,
		jpeg:      data,
		frameTime: frameTime}, nil
}

func (x *JpegFrame) Width() int {
	return x.width
}

func (x *JpegFrame) Height() int {
	return x.height
}

func (x *JpegFrame) Empty() bool {
	return len(x.jpeg) == 0
}

func (x *JpegFrame) Time() time.Time {
	return x.frameTime
}

// ToJpeg returns the original bytes; quality only applies to re-encoding.
func (x *JpegFrame) ToJpeg(quality int) ([]byte, error) {
	if x.Empty() {
		return nil, ErrEmptyFrame
	}
	return x.jpeg, nil
}

func (x *JpegFrame) Image() (image.Image, error) {
	if x.Empty() {
		return nil, ErrEmptyFrame
	}
	return jpeg.Decode(bytes.NewReader(x.jpeg))
}

func (x *JpegFrame) Clone() IFrame {
	return &JpegFrame{
		width:     x.width,
		height:    x.height,
		jpeg:      Copy(x.jpeg),
		frameTime: x.frameTime}
}

func (x *JpegFrame) Close() {
	x.jpeg = nil
}

func EmptyFrame(width, height int) []byte {
	pix := make([]uint8, width*height*4)
	img := &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	var b bytes.Buffer
	w := bufio.NewWriter(&b)
	jpeg.Encode(w, img, &jpeg.Options{Quality: 10})
	w.Flush()
	return b.Bytes()
}

func Copy(slice []byte) []byte {
	out := make([]byte, len(slice))
	copy(out, slice)
	return out
}
