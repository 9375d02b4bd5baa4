// Copyright © 2023 Sloan Childers
package base

import (
	"fmt"
	"image"
	"time"
)

type Cameras struct {
	Cameras []*CameraConfig
}

type CameraConfig struct {
	Enabled bool
	Name    string
	Plugin  string
	// local V4L2 device number for the blackjack plugin
	Device int `json:"Device,omitempty"`
	// for network cameras
	Addr        string `json:"Addr,omitempty"`
	Port        int    `json:"Port,omitempty"`
	Uri         string `json:"Uri,omitempty"`
	ControlPort int    `json:"ControlPort,omitempty"`
	User        string `json:"User,omitempty"`
	Pass        string `json:"Pass,omitempty"`

	Resolution string
	VFlip      bool
	HFlip      bool
	// nominal rate used until the estimator has observations
	Rate float32

	CaptureLength    int
	AfterEventLength int
	ReconnectSeconds int

	Detection *DetectionConfig
	Recording *RecordingConfig
	Location  *Location `json:"Location,omitempty"`
}

type DetectionConfig struct {
	Enabled      bool
	Detectors    []string
	// directory holding the stock Haar models, overridden per name by Models
	ModelDir     string
	Models       map[string]string `json:"Models,omitempty"`
	ScaleFactor  float64
	MinNeighbors int
	Decorate     bool
	Motion       *MotionConfig `json:"Motion,omitempty"`
}

type MotionRectangle struct {
	Px1 int
	Py1 int
	Px2 int
	Py2 int
}

type MotionConfig struct {
	Area    float64
	Overlap int
	Mask    []MotionRectangle
}

type RecordingConfig struct {
	OutputDir string
	Format    string
	Codec     string
	Extension string
	Quality   int
}

type Location struct {
	Latitude  float64
	Longitude float64
}

const (
	PLUGIN_OPENCV    = "opencv"
	PLUGIN_AXIS      = "axis"
	PLUGIN_BLACKJACK = "blackjack"

	FORMAT_OPENCV = "opencv"
	FORMAT_MJPEG  = "mjpeg"
)

// Defaults fills in everything a camera.json is allowed to leave out.
func (x *CameraConfig) Defaults() {
	if x.Plugin == "" {
		x.Plugin = PLUGIN_OPENCV
	}
	if x.Port == 0 {
		x.Port = 81
	}
	if x.Uri == "" {
		x.Uri = "stream"
	}
	if x.ControlPort == 0 {
		x.ControlPort = 80
	}
	if x.Resolution == "" {
		x.Resolution = "VGA"
	}
	if x.Rate <= 0 {
		x.Rate = 10
	}
	if x.CaptureLength <= 0 {
		x.CaptureLength = 50
	}
	if x.AfterEventLength <= 0 {
		x.AfterEventLength = 50
	}
	if x.ReconnectSeconds <= 0 {
		x.ReconnectSeconds = 3
	}
	if x.Detection == nil {
		x.Detection = &DetectionConfig{}
	}
	if len(x.Detection.Detectors) == 0 {
		x.Detection.Detectors = []string{"body", "frontal", "profile"}
	}
	if x.Detection.ModelDir == "" {
		x.Detection.ModelDir = "models"
	}
	if x.Detection.ScaleFactor <= 1 {
		x.Detection.ScaleFactor = 1.1
	}
	if x.Detection.MinNeighbors <= 0 {
		x.Detection.MinNeighbors = 5
	}
	if x.Recording == nil {
		x.Recording = &RecordingConfig{}
	}
	if x.Recording.OutputDir == "" {
		x.Recording.OutputDir = "./recordings"
	}
	if x.Recording.Format == "" {
		x.Recording.Format = FORMAT_OPENCV
	}
	if x.Recording.Codec == "" {
		x.Recording.Codec = "MJPG"
	}
	if x.Recording.Extension == "" {
		if x.Recording.Format == FORMAT_MJPEG {
			x.Recording.Extension = ".mjpeg"
		} else {
			x.Recording.Extension = ".avi"
		}
	}
	if x.Recording.Quality <= 0 || x.Recording.Quality > 100 {
		x.Recording.Quality = 80
	}
}

func (x *CameraConfig) Validate() error {
	if x.Name == "" {
		return fmt.Errorf("camera name: %w", ErrInvalidConfig)
	}
	if _, err := LookupResolution(x.Resolution); err != nil {
		return err
	}
	switch x.Plugin {
	case PLUGIN_OPENCV, PLUGIN_AXIS:
		if x.Addr == "" {
			return fmt.Errorf("camera %s has no address: %w", x.Name, ErrInvalidConfig)
		}
	case PLUGIN_BLACKJACK:
	default:
		return fmt.Errorf("camera %s plugin %q: %w", x.Name, x.Plugin, ErrInvalidConfig)
	}
	if x.Recording != nil {
		switch x.Recording.Format {
		case FORMAT_OPENCV, FORMAT_MJPEG:
		default:
			return fmt.Errorf("camera %s recording format %q: %w", x.Name, x.Recording.Format, ErrInvalidConfig)
		}
	}
	return nil
}

func (x *CameraConfig) StreamURL() string {
	return fmt.Sprintf("http://%s:%d/%s", x.Addr, x.Port, x.Uri)
}

func (x *CameraConfig) ControlURL() string {
	return fmt.Sprintf("http://%s:%d/control", x.Addr, x.ControlPort)
}

func (x *CameraConfig) ReconnectDelay() time.Duration {
	return time.Duration(x.ReconnectSeconds) * time.Second
}

// BoundingBox is a detected region in frame pixel coordinates.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func BoxFromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

func (x BoundingBox) Rect() image.Rectangle {
	return image.Rect(x.X, x.Y, x.X+x.W, x.Y+x.H)
}

type ISource interface {
	Name() string
	Open() error
	Read() (IFrame, error)
	Close() error
}

type IDeviceControl interface {
	Configure(resolution Resolution, vflip, hflip bool) error
}

type IFrame interface {
	Width() int
	Height() int
	Empty() bool
	Time() time.Time
	ToJpeg(quality int) ([]byte, error)
	Clone() IFrame
	Close()
}

type IDetector interface {
	Name() string
	Detect(frame IFrame) ([]BoundingBox, error)
}

// IAnnotator draws boxes onto a frame the caller owns.
type IAnnotator interface {
	Annotate(frame IFrame, boxes []BoundingBox) IFrame
}

type IClipWriter interface {
	Write(frame IFrame) error
	Close() error
}

type ClipWriterFactory func(path string, fps float64, width, height int) (IClipWriter, error)
