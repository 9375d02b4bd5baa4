// Copyright © 2023 Sloan Childers
package detect

import (
	"fmt"
	"strings"

	"github.com/osintami/sentrycam/base"
	"go.uber.org/multierr"
)

// Cascade tries detectors in order; the first non-empty result wins and the
// rest are skipped.
type Cascade struct {
	detectors []base.IDetector
}

func NewCascade(detectors ...base.IDetector) *Cascade {
	return &Cascade{detectors: detectors}
}

func (x *Cascade) Name() string {
	names := make([]string, 0, len(x.detectors))
	for _, d := range x.detectors {
		names = append(names, d.Name())
	}
	return "cascade(" + strings.Join(names, ",") + ")"
}

// Detect moves past a failing detector. If nothing is found and any
// detector failed, the failures are returned wrapped in base.ErrDetector.
func (x *Cascade) Detect(frame base.IFrame) ([]base.BoundingBox, error) {
	var errs []error
	for _, d := range x.detectors {
		boxes, err := d.Detect(frame)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		if len(boxes) > 0 {
			return boxes, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", base.ErrDetector, multierr.Combine(errs...))
	}
	return nil, nil
}

func (x *Cascade) Len() int {
	return len(x.detectors)
}

// Close releases detectors that hold native resources.
func (x *Cascade) Close() error {
	var errs []error
	for _, d := range x.detectors {
		if closer, ok := d.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return multierr.Combine(errs...)
}
