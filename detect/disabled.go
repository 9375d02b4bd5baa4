// Copyright © 2023 Sloan Childers
package detect

import "github.com/osintami/sentrycam/base"

// Disabled never detects anything; used for stream-only cameras.
type Disabled struct{}

func NewDisabled() *Disabled {
	return &Disabled{}
}

func (x *Disabled) Name() string {
	return "disabled"
}

func (x *Disabled) Detect(frame base.IFrame) ([]base.BoundingBox, error) {
	return nil, nil
}
