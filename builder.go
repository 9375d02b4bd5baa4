// Copyright © 2023 Sloan Childers
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/osintami/sentrycam/axis"
	"github.com/osintami/sentrycam/base"
	"github.com/osintami/sentrycam/blackjack"
	"github.com/osintami/sentrycam/catalog"
	"github.com/osintami/sentrycam/detect"
	"github.com/osintami/sentrycam/esp32"
	"github.com/osintami/sentrycam/opencv"
	"github.com/osintami/sentrycam/recorder"
	"github.com/rs/zerolog/log"
)

// Builder wires one pipeline per enabled camera and remembers the detectors
// so their native resources can be released on shutdown.
type Builder struct {
	config    *Config
	clips     recorder.ICatalog
	detectors []*detect.Cascade
}

func NewBuilder(config *Config, clips *catalog.Catalog) *Builder {
	x := &Builder{config: config}
	if clips != nil {
		x.clips = clips
	}
	return x
}

func (x *Builder) Registry(cameras *base.Cameras) (*recorder.Registry, error) {
	registry := recorder.NewRegistry()
	for _, config := range cameras.Cameras {
		if !config.Enabled {
			log.Info().Str("component", "server").Str("name", config.Name).Msg("camera disabled")
			continue
		}
		pipeline, err := x.Pipeline(config)
		if err != nil {
			return nil, err
		}
		if err := registry.Add(pipeline); err != nil {
			return nil, err
		}
	}
	if len(registry.Names()) == 0 {
		return nil, fmt.Errorf("no enabled cameras: %w", base.ErrInvalidConfig)
	}
	return registry, nil
}

func (x *Builder) Pipeline(config *base.CameraConfig) (*recorder.Pipeline, error) {
	config.Defaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	resolution, err := base.LookupResolution(config.Resolution)
	if err != nil {
		return nil, err
	}

	options := []recorder.Option{
		recorder.WithAnnotator(opencv.NewAnnotator()),
		recorder.WithExif(x.exif(config)),
	}

	var source base.ISource
	switch config.Plugin {
	case base.PLUGIN_OPENCV:
		source = opencv.NewSource(config)
	case base.PLUGIN_AXIS:
		source = axis.NewSource(config, resolution)
	case base.PLUGIN_BLACKJACK:
		source = blackjack.NewSource(config, resolution)
	}
	// ESP32 firmware streams on Port and takes settings on ControlPort
	if config.Plugin != base.PLUGIN_BLACKJACK && !strings.HasPrefix(config.Uri, "axis-cgi") {
		options = append(options, recorder.WithDeviceControl(esp32.NewControl(config)))
	}

	persister := recorder.NewPersister(config.Name, opencv.NewClipWriter(config.Recording), x.clips)
	return recorder.NewPipeline(config, source, x.detector(config), persister, options...)
}

// detector falls back to detection disabled when no variant can be loaded,
// the camera still streams and buffers.
func (x *Builder) detector(config *base.CameraConfig) base.IDetector {
	if !config.Detection.Enabled {
		return detect.NewDisabled()
	}
	detectors, errs := opencv.NewDetectors(config.Detection)
	for _, err := range errs {
		log.Error().Err(err).Str("component", "server").Str("name", config.Name).Msg("detector")
	}
	if len(detectors) == 0 {
		log.Warn().Str("component", "server").Str("name", config.Name).Msg("no detectors loaded, detection disabled")
		return detect.NewDisabled()
	}
	cascade := detect.NewCascade(detectors...)
	x.detectors = append(x.detectors, cascade)
	log.Info().Str("component", "server").Str("name", config.Name).Str("detector", cascade.Name()).Msg("detection enabled")
	return cascade
}

func (x *Builder) exif(config *base.CameraConfig) *base.ExifInfo {
	host, _ := os.Hostname()
	return &base.ExifInfo{
		Artist:   config.Name,
		Make:     x.config.Make,
		Model:    x.config.Model,
		Host:     host,
		Location: config.Location,
	}
}

// Close releases detector resources; call it after every pipeline stopped.
func (x *Builder) Close() {
	for _, cascade := range x.detectors {
		if err := cascade.Close(); err != nil {
			log.Warn().Err(err).Str("component", "server").Str("detector", cascade.Name()).Msg("close")
		}
	}
	x.detectors = nil
}
