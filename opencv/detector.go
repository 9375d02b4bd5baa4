// Copyright © 2023 Sloan Childers
package opencv

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/osintami/sentrycam/base"
	"gocv.io/x/gocv"
)

const MOTION = "motion"

// stock Haar models shipped in DetectionConfig.ModelDir
var stockModels = map[string]string{
	"body":    "fullbody.xml",
	"frontal": "frontalface.xml",
	"profile": "profileface.xml",
}

// CascadeDetector runs one Haar cascade over a grayscale copy of the frame.
type CascadeDetector struct {
	name       string
	path       string
	classifier gocv.CascadeClassifier
	scale      float64
	neighbors  int
}

func NewCascadeDetector(name, path string, scale float64, neighbors int) (*CascadeDetector, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s model: %w", name, err)
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%s model %s: %w", name, path, base.ErrDetector)
	}
	return &CascadeDetector{
		name:       name,
		path:       path,
		classifier: classifier,
		scale:      scale,
		neighbors:  neighbors}, nil
}

func (x *CascadeDetector) Name() string {
	return x.name
}

func (x *CascadeDetector) Detect(frame base.IFrame) ([]base.BoundingBox, error) {
	mat, owned, err := toMat(frame)
	if err != nil {
		return nil, err
	}
	if owned {
		defer mat.Close()
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	rects := x.classifier.DetectMultiScaleWithParams(gray, x.scale, x.neighbors, 0, image.Point{}, image.Point{})
	return boxes(rects), nil
}

func (x *CascadeDetector) Close() error {
	return x.classifier.Close()
}

// NewDetector builds one detector variant by name: a stock Haar model, a
// custom model listed in Models, or motion.
func NewDetector(name string, config *base.DetectionConfig) (base.IDetector, error) {
	if name == MOTION {
		return NewMotion(config.Motion), nil
	}
	path, ok := config.Models[name]
	if !ok {
		file, stock := stockModels[name]
		if !stock {
			return nil, fmt.Errorf("%q: %w", name, base.ErrUnknownDetector)
		}
		path = filepath.Join(config.ModelDir, file)
	}
	return NewCascadeDetector(name, path, config.ScaleFactor, config.MinNeighbors)
}

// NewDetectors builds every configured variant in order. Variants that fail
// to load are returned as errors alongside the ones that did.
func NewDetectors(config *base.DetectionConfig) ([]base.IDetector, []error) {
	detectors := []base.IDetector{}
	errs := []error{}
	for _, name := range config.Detectors {
		detector, err := NewDetector(name, config)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		detectors = append(detectors, detector)
	}
	return detectors, errs
}

func boxes(rects []image.Rectangle) []base.BoundingBox {
	if len(rects) == 0 {
		return nil
	}
	out := make([]base.BoundingBox, 0, len(rects))
	for _, r := range rects {
		out = append(out, base.BoxFromRect(r))
	}
	return out
}
