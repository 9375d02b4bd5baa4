// Copyright © 2023 Sloan Childers
package base

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"
)

func Sleep(frameRate int64, elapsedTime int64) {
	if frameRate <= 0 {
		return
	}
	sleepTime := int64(1000/frameRate) - elapsedTime
	if sleepTime < 0 {
		return
	}
	time.Sleep(time.Duration(sleepTime) * time.Millisecond)
}

const (
	BOUNDARY            = "--myboundary"
	BOUNDARY_SIZE       = len(BOUNDARY)
	CONTENT_TYPE        = "Content-Type: image/jpeg"
	CONTENT_TYPE_SIZE   = len(CONTENT_TYPE)
	CONTENT_LENGTH      = "Content-Length: "
	CONTENT_LENGTH_SIZE = len(CONTENT_LENGTH)
	EOL_SIZE            = 2
)

var EOL = []byte{'\r', '\n'}

const (
	X_TIMESTAMP = "X-Timestamp: "
	X_FRAMERATE = "X-Framerate: "
)

func WriteMjpeg(writer io.Writer, data []byte) error {
	return writeMjpegPart(writer, data)
}

// WriteMjpegFrame adds the capture time and clip rate to the part headers.
// X-Timestamp is formatted the way the ESP32 firmware sends it.
func WriteMjpegFrame(writer io.Writer, data []byte, frameTime time.Time, fps float64) error {
	return writeMjpegPart(writer, data,
		fmt.Sprintf("%s%d.%06d", X_TIMESTAMP, frameTime.Unix(), frameTime.Nanosecond()/1000),
		fmt.Sprintf("%s%.2f", X_FRAMERATE, fps))
}

func writeMjpegPart(writer io.Writer, data []byte, headers ...string) error {
	writer.Write([]byte(BOUNDARY))
	writer.Write(EOL)
	writer.Write([]byte(CONTENT_TYPE))
	writer.Write(EOL)
	writer.Write([]byte(fmt.Sprintf("%s%d", CONTENT_LENGTH, len(data))))
	writer.Write(EOL)
	for _, header := range headers {
		writer.Write([]byte(header))
		writer.Write(EOL)
	}
	writer.Write(EOL)
	writer.Write(data)
	_, err := writer.Write(EOL)
	return err
}

const (
	JPEG_MARKER byte = 0xFF
	JPEG_SOI    byte = 0xD8
	JPEG_EOI    byte = 0xD9
)

func ValidateJPEG(data []byte) bool {
	size := len(data)
	if size < 4 {
		return false
	}
	if (data[0] == JPEG_MARKER) && (data[1] == JPEG_SOI) && (data[size-2] == JPEG_MARKER) && (data[size-1] == JPEG_EOI) {
		return true
	}
	return false
}

// MjpegWriter persists a clip as a multipart JPEG file, the same framing
// served on /v1/stream. It needs no codec support, so it also works where
// OpenCV was built without a video backend. The container has no rate of
// its own; every part carries the clip rate and the frame capture time.
type MjpegWriter struct {
	fh      *os.File
	out     *bufio.Writer
	quality int
	fps     float64
	frames  int
}

func NewMjpegWriter(quality int) ClipWriterFactory {
	return func(path string, fps float64, width, height int) (IClipWriter, error) {
		fh, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return &MjpegWriter{fh: fh, out: bufio.NewWriter(fh), quality: quality, fps: fps}, nil
	}
}

func (x *MjpegWriter) Write(frame IFrame) error {
	data, err := frame.ToJpeg(x.quality)
	if err != nil {
		return err
	}
	if err := WriteMjpegFrame(x.out, data, frame.Time(), x.fps); err != nil {
		return err
	}
	x.frames++
	return nil
}

func (x *MjpegWriter) Close() error {
	err := x.out.Flush()
	if cerr := x.fh.Close(); err == nil {
		err = cerr
	}
	return err
}
