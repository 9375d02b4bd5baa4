// Copyright © 2023 Sloan Childers
package esp32

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

const CONTROL_TIMEOUT = 5 * time.Second

// Control drives the ESP32 camera web server's /control endpoint, which
// takes one var=<name>&val=<value> pair per request.
type Control struct {
	config *base.CameraConfig
	client *resty.Client
}

func NewControl(config *base.CameraConfig) *Control {
	client := resty.New().SetTimeout(CONTROL_TIMEOUT)
	if config.User != "" {
		client.SetBasicAuth(config.User, config.Pass)
	}
	return &Control{config: config, client: client}
}

// Configure sets the frame size and orientation. Every setting is attempted
// even when an earlier one fails.
func (x *Control) Configure(resolution base.Resolution, vflip, hflip bool) error {
	var err error
	if resolution.Ordinal > 0 {
		err = multierr.Append(err, x.Set("framesize", resolution.Ordinal))
	}
	err = multierr.Append(err, x.Set("vflip", boolVal(vflip)))
	err = multierr.Append(err, x.Set("hflip", boolVal(hflip)))
	if err == nil {
		log.Info().Str("component", "esp32").Str("name", x.config.Name).Str("resolution", resolution.String()).
			Bool("vflip", vflip).Bool("hflip", hflip).Msg("configured")
	}
	return err
}

func (x *Control) Set(name string, value int) error {
	resp, err := x.client.R().
		SetQueryParam("var", name).
		SetQueryParam("val", strconv.Itoa(value)).
		Get(x.config.ControlURL())
	if err != nil {
		return fmt.Errorf("%s=%d: %w", name, value, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s=%d: http status %d", name, value, resp.StatusCode())
	}
	return nil
}

func boolVal(b bool) int {
	if b {
		return 1
	}
	return 0
}
