// Copyright © 2022 Sloan Childers
package blackjack

import (
	"errors"
	"fmt"
	"time"

	"github.com/blackjack/webcam"
	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// "plugin": "blackjack",
// "device": 0,
// "resolution": "VGA",

const (
	V4L2_PIX_FMT_YUYV = 0x56595559
	V4L2_PIX_FMT_MJPG = 0x47504A4D

	// seconds
	FRAME_TIMEOUT = 2
)

// Source captures MJPG frames straight from a local V4L2 device. The frames
// are already JPEG so nothing is decoded on the ingestion path.
type Source struct {
	config     *base.CameraConfig
	resolution base.Resolution
	webcam     *webcam.Webcam
}

func NewSource(config *base.CameraConfig, resolution base.Resolution) *Source {
	return &Source{
		config:     config,
		resolution: resolution,
	}
}

func DevicePath(device int) string {
	return fmt.Sprintf("/dev/video%d", device)
}

func (x *Source) Name() string {
	return DevicePath(x.config.Device)
}

// ListFormatsAndFrameSizes opens the device just long enough to query it.
func ListFormatsAndFrameSizes(device int) (base.Formats, error) {
	cam, err := webcam.Open(DevicePath(device))
	if err != nil {
		return base.Formats{}, err
	}
	defer cam.Close()
	return base.ListFormats(cam), nil
}

func (x *Source) CheckSize(width, height uint32) bool {
	frameSizes := x.webcam.GetSupportedFrameSizes(V4L2_PIX_FMT_MJPG)
	for _, frameSize := range frameSizes {
		if frameSize.MaxHeight == height && frameSize.MaxWidth == width {
			return true
		}
	}
	return false
}

func (x *Source) Open() error {
	x.Close()

	var err error
	x.webcam, err = webcam.Open(x.Name())
	if err != nil {
		return err
	}

	width, height := uint32(x.resolution.Width), uint32(x.resolution.Height)
	if !x.CheckSize(width, height) {
		log.Warn().Str("component", "driver").Str("name", x.config.Name).Str("resolution", x.resolution.String()).Msg("size not advertised by device")
	}
	_, w, h, err := x.webcam.SetImageFormat(V4L2_PIX_FMT_MJPG, width, height)
	if err != nil {
		x.Close()
		return fmt.Errorf("SetImageFormat: %w", err)
	}
	if w != width || h != height {
		log.Warn().Str("component", "driver").Str("name", x.config.Name).Uint32("width", w).Uint32("height", h).Msg("device chose a different size")
	}

	if err = x.webcam.SetFramerate(x.config.Rate); err != nil {
		log.Warn().Err(err).Str("component", "driver").Str("name", x.config.Name).Msg("SetFramerate")
	}
	if err = x.webcam.SetAutoWhiteBalance(true); err != nil {
		log.Warn().Err(err).Str("component", "driver").Str("name", x.config.Name).Msg("SetAutoWhiteBalance")
	}
	if err = x.webcam.StartStreaming(); err != nil {
		x.Close()
		return fmt.Errorf("StartStreaming: %w", err)
	}
	return nil
}

func (x *Source) Read() (base.IFrame, error) {
	if x.webcam == nil {
		return nil, fmt.Errorf("%s not open: %w", x.Name(), base.ErrRead)
	}
	err := x.webcam.WaitForFrame(FRAME_TIMEOUT)
	var timeout *webcam.Timeout
	if errors.As(err, &timeout) {
		return nil, fmt.Errorf("%s: frame timeout: %w", x.Name(), base.ErrRead)
	}
	if err != nil {
		return nil, multierr.Combine(base.ErrRead, err)
	}
	out, err := x.webcam.ReadFrame()
	if err != nil {
		return nil, multierr.Combine(base.ErrRead, err)
	}
	// NOTE:  must make a copy of the out slice, the driver reuses its buffers
	frame, err := base.NewJpegFrame(base.Copy(out), time.Now())
	if err != nil {
		return nil, multierr.Combine(base.ErrRead, err)
	}
	return frame, nil
}

func (x *Source) Close() error {
	if x.webcam == nil {
		return nil
	}
	err := x.webcam.StopStreaming()
	if err != nil {
		log.Warn().Err(err).Str("component", "driver").Str("name", x.config.Name).Msg("StopStreaming")
	}
	err = x.webcam.Close()
	x.webcam = nil
	return err
}
