// Copyright © 2023 Sloan Childers
package opencv

import (
	"fmt"
	"time"

	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// "plugin": "opencv",
// "addr": "192.168.0.27",
// "port": 81,
// "uri": "stream",

// Source reads a network stream through the OpenCV capture backends, which
// handle the ESP32 multipart MJPEG stream as well as RTSP and files.
type Source struct {
	config  *base.CameraConfig
	url     string
	capture *gocv.VideoCapture
}

func NewSource(config *base.CameraConfig) *Source {
	return &Source{
		config: config,
		url:    config.StreamURL(),
	}
}

func (x *Source) Name() string {
	return x.url
}

func (x *Source) Open() error {
	if x.capture != nil {
		x.Close()
	}
	capture, err := gocv.OpenVideoCapture(x.url)
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%s: %w", x.url, base.ErrConnection)
	}
	x.capture = capture
	log.Info().Str("component", "driver").Str("name", x.config.Name).Str("url", x.url).Msg("connected")
	return nil
}

func (x *Source) Read() (base.IFrame, error) {
	if x.capture == nil {
		return nil, fmt.Errorf("%s not open: %w", x.url, base.ErrRead)
	}
	img := gocv.NewMat()
	if !x.capture.Read(&img) {
		img.Close()
		return nil, fmt.Errorf("%s: %w", x.url, base.ErrEndOfStream)
	}
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("%s empty frame: %w", x.url, base.ErrRead)
	}
	return NewFrame(img, time.Now()), nil
}

// Close is safe to call on a source that is not open.
func (x *Source) Close() error {
	if x.capture == nil {
		return nil
	}
	err := x.capture.Close()
	x.capture = nil
	return err
}
