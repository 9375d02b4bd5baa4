// Copyright © 2022 Sloan Childers
package axis

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

// "plugin": "axis",
// "name": "Monument",
// "addr": "88.53.197.250",
// "port": 80,
// "user": "",
// "pass": "",
// "uri": "axis-cgi/mjpg/video.cgi",

const (
	DEFAULT_BOUNDARY = "myboundary"
	STALL_TIMEOUT    = 10 * time.Second
	MAX_FRAME_SIZE   = 16 << 20
	READ_BUFFER_SIZE = 64 << 10
)

// Source reads multipart/x-mixed-replace JPEG streams over HTTP, as served
// by Axis cameras, the ESP32 camera firmware and our own /v1/stream.
type Source struct {
	config     *base.CameraConfig
	resolution base.Resolution
	client     *resty.Client
	stall      time.Duration

	mutex     sync.Mutex
	body      io.ReadCloser
	reader    *bufio.Reader
	delimiter []byte

	// only touched by the reading goroutine
	pending bool
	ended   bool
}

func NewSource(config *base.CameraConfig, resolution base.Resolution) *Source {
	client := resty.New().
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
		SetHeader("Accept", "multipart/x-mixed-replace")
	if config.User != "" {
		client.SetBasicAuth(config.User, config.Pass)
	}
	return &Source{
		config:     config,
		resolution: resolution,
		client:     client,
		stall:      STALL_TIMEOUT}
}

func (x *Source) Name() string {
	return x.getURL()
}

// base Axis camera; VAPIX takes the resolution as a query parameter
func (x *Source) getURL() string {
	url := x.config.StreamURL()
	if strings.HasPrefix(x.config.Uri, "axis-cgi") {
		url = fmt.Sprintf("%s?resolution=%dx%d", url, x.resolution.Width, x.resolution.Height)
	}
	return url
}

func (x *Source) Open() error {
	x.Close()

	resp, err := x.client.R().SetDoNotParseResponse(true).Get(x.getURL())
	if err != nil {
		return err
	}
	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		body.Close()
		return fmt.Errorf("%s: http status %d: %w", x.getURL(), resp.StatusCode(), base.ErrConnection)
	}

	boundary := DEFAULT_BOUNDARY
	mediaType, params, err := mime.ParseMediaType(resp.Header().Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "" {
		boundary = params["boundary"]
	}

	x.mutex.Lock()
	x.body = body
	x.reader = bufio.NewReaderSize(body, READ_BUFFER_SIZE)
	x.delimiter = []byte("--" + strings.TrimPrefix(boundary, "--"))
	x.pending = false
	x.ended = false
	x.mutex.Unlock()
	log.Info().Str("component", "axis").Str("name", x.config.Name).Str("url", x.getURL()).Str("boundary", boundary).Msg("connected")
	return nil
}

// Read returns the next JPEG part as soon as its bytes have arrived. A
// stream that stops sending for longer than the stall timeout is closed so
// Read never blocks forever.
func (x *Source) Read() (base.IFrame, error) {
	x.mutex.Lock()
	reader, body, delimiter := x.reader, x.body, x.delimiter
	x.mutex.Unlock()
	if reader == nil {
		return nil, fmt.Errorf("%s not open: %w", x.config.Name, base.ErrRead)
	}

	var stalled atomic.Bool
	watchdog := time.AfterFunc(x.stall, func() {
		stalled.Store(true)
		log.Warn().Str("component", "axis").Str("name", x.config.Name).Dur("timeout", x.stall).Msg("stream stalled")
		body.Close()
	})
	defer watchdog.Stop()

	for {
		data, err := x.nextPart(reader, delimiter)
		if err != nil {
			if stalled.Load() {
				return nil, multierr.Combine(base.ErrRead, err)
			}
			return nil, err
		}
		if data == nil {
			continue
		}
		frame, err := base.NewJpegFrame(data, time.Now())
		if err != nil {
			log.Warn().Err(err).Str("component", "axis").Str("name", x.config.Name).Int("size", len(data)).Msg("invalid jpeg")
			continue
		}
		return frame, nil
	}
}

// nextPart returns the body of the next part, or nil when the part is not a
// JPEG image. Parts announcing a Content-Length are read exactly, the way
// Axis and ESP32 cameras send them; otherwise the body runs to the next
// boundary line.
func (x *Source) nextPart(reader *bufio.Reader, delimiter []byte) ([]byte, error) {
	if x.ended {
		return nil, fmt.Errorf("%s: %w", x.config.Name, base.ErrEndOfStream)
	}
	if !x.pending {
		if err := x.seekBoundary(reader, delimiter); err != nil {
			return nil, err
		}
	}
	x.pending = false

	header, err := textproto.NewReader(reader).ReadMIMEHeader()
	if err != nil {
		return nil, multierr.Combine(base.ErrRead, err)
	}

	var data []byte
	if length := strings.TrimSpace(header.Get("Content-Length")); length != "" {
		size, err := strconv.Atoi(length)
		if err != nil || size < 0 || size > MAX_FRAME_SIZE {
			return nil, fmt.Errorf("%w: content length %q", base.ErrRead, length)
		}
		data = make([]byte, size)
		if _, err := io.ReadFull(reader, data); err != nil {
			return nil, multierr.Combine(base.ErrRead, err)
		}
	} else {
		data, err = x.readToBoundary(reader, delimiter)
		if err != nil {
			return nil, err
		}
	}

	if ct := header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/jpeg") {
		return nil, nil
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// seekBoundary consumes lines up to and including the next delimiter line.
func (x *Source) seekBoundary(reader *bufio.Reader, delimiter []byte) error {
	lineStart := true
	for {
		line, err := reader.ReadSlice('\n')
		if lineStart {
			switch delimiterKind(line, delimiter) {
			case partDelimiter:
				return nil
			case closeDelimiter:
				x.ended = true
				return fmt.Errorf("%s: %w", x.config.Name, base.ErrEndOfStream)
			}
		}
		switch {
		case err == bufio.ErrBufferFull:
			lineStart = false
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%s: %w", x.config.Name, base.ErrEndOfStream)
		case err != nil:
			return multierr.Combine(base.ErrRead, err)
		default:
			lineStart = true
		}
	}
}

// readToBoundary collects a part body that has no Content-Length. The
// delimiter line that ends it is consumed and remembered for the next part.
func (x *Source) readToBoundary(reader *bufio.Reader, delimiter []byte) ([]byte, error) {
	var data []byte
	lineStart := true
	for {
		line, err := reader.ReadSlice('\n')
		if lineStart {
			switch delimiterKind(line, delimiter) {
			case partDelimiter:
				x.pending = true
				return trimEOL(data), nil
			case closeDelimiter:
				x.ended = true
				return trimEOL(data), nil
			}
		}
		data = append(data, line...)
		if len(data) > MAX_FRAME_SIZE {
			return nil, fmt.Errorf("%w: part larger than %d bytes", base.ErrRead, MAX_FRAME_SIZE)
		}
		switch {
		case err == bufio.ErrBufferFull:
			lineStart = false
		case err != nil:
			return nil, multierr.Combine(base.ErrRead, io.ErrUnexpectedEOF, err)
		default:
			lineStart = true
		}
	}
}

const (
	notDelimiter = iota
	partDelimiter
	closeDelimiter
)

func delimiterKind(line, delimiter []byte) int {
	line = bytes.TrimRight(line, " \t\r\n")
	if !bytes.HasPrefix(line, delimiter) {
		return notDelimiter
	}
	switch rest := line[len(delimiter):]; {
	case len(rest) == 0:
		return partDelimiter
	case bytes.Equal(rest, []byte("--")):
		return closeDelimiter
	}
	return notDelimiter
}

func trimEOL(data []byte) []byte {
	data = bytes.TrimSuffix(data, []byte("\n"))
	return bytes.TrimSuffix(data, []byte("\r"))
}

func (x *Source) Close() error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.body == nil {
		return nil
	}
	err := x.body.Close()
	x.body = nil
	x.reader = nil
	return err
}
