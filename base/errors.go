// Copyright © 2023 Sloan Childers
package base

import "errors"

var (
	ErrConnection        = errors.New("camera connection failed")
	ErrRead              = errors.New("camera read failed")
	ErrEndOfStream       = errors.New("end of stream")
	ErrDetector          = errors.New("detector failed")
	ErrPersisterBusy     = errors.New("persister already has a job in flight")
	ErrSessionAborted    = errors.New("recording session aborted")
	ErrUnknownResolution = errors.New("unknown resolution")
	ErrUnknownDetector   = errors.New("unknown detector")
	ErrCameraNotFound    = errors.New("camera not found")
	ErrInvalidConfig     = errors.New("invalid camera configuration")
)
