// Copyright © 2023 Sloan Childers
package base

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCameraConfigDefaults(t *testing.T) {
	config := &CameraConfig{Name: "door", Addr: "192.168.0.27"}
	config.Defaults()

	assert.Equal(t, PLUGIN_OPENCV, config.Plugin)
	assert.Equal(t, "http://192.168.0.27:81/stream", config.StreamURL())
	assert.Equal(t, "http://192.168.0.27:80/control", config.ControlURL())
	assert.Equal(t, 3*time.Second, config.ReconnectDelay())
	assert.Equal(t, []string{"body", "frontal", "profile"}, config.Detection.Detectors)
	assert.Equal(t, ".avi", config.Recording.Extension)
	assert.NoError(t, config.Validate())
}

func TestCameraConfigDefaultsMjpegExtension(t *testing.T) {
	config := &CameraConfig{Name: "door", Addr: "cam", Recording: &RecordingConfig{Format: FORMAT_MJPEG}}
	config.Defaults()
	assert.Equal(t, ".mjpeg", config.Recording.Extension)
}

func TestCameraConfigValidate(t *testing.T) {
	config := &CameraConfig{Addr: "cam"}
	config.Defaults()
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)

	config = &CameraConfig{Name: "door", Addr: "cam", Resolution: "8K"}
	config.Defaults()
	assert.ErrorIs(t, config.Validate(), ErrUnknownResolution)

	config = &CameraConfig{Name: "door"}
	config.Defaults()
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)

	config = &CameraConfig{Name: "usb", Plugin: PLUGIN_BLACKJACK}
	config.Defaults()
	assert.NoError(t, config.Validate())

	config = &CameraConfig{Name: "door", Addr: "cam", Plugin: "ffmpeg"}
	config.Defaults()
	assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)
}

func TestBoundingBoxRect(t *testing.T) {
	box := BoundingBox{X: 10, Y: 20, W: 30, H: 40}
	assert.Equal(t, image.Rect(10, 20, 40, 60), box.Rect())
	assert.Equal(t, box, BoxFromRect(box.Rect()))
}
