// Copyright © 2023 Sloan Childers
package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/osintami/sentrycam/base"
	"github.com/osintami/sentrycam/blackjack"
	"github.com/osintami/sentrycam/catalog"
	"github.com/osintami/sentrycam/recorder"
	"github.com/osintami/sentrycam/sink"
	"github.com/rs/zerolog/log"
)

type Config struct {
	PathPrefix  string `env:"PATH_PREFIX" envDefault:"/"`
	ListenAddr  string `env:"LISTEN_ADDR,required" envDefault:"0.0.0.0:80"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"TRACE"`
	ApiKey      string `env:"API_KEY"`
	CamerasFile string `env:"CAMERAS_FILE" envDefault:"./cameras.json"`
	CatalogFile string `env:"CATALOG_FILE" envDefault:"./clips.db"`
	Make        string `env:"EXIF_MAKE" envDefault:"OSINTAMI"`
	Model       string `env:"EXIF_MODEL" envDefault:"sentrycam"`
}

type IClipCatalog interface {
	List(camera string, limit int) ([]*catalog.Clip, error)
}

type SentryServer struct {
	registry *recorder.Registry
	clips    IClipCatalog
	config   *Config
}

var ErrApiKey = errors.New("api key invalid")
var ErrNoSnapshot = errors.New("no frame received yet")
var ErrNoCatalog = errors.New("clip catalog disabled")
var ErrFormatsUnsupported = errors.New("formats are only listed for local V4L2 devices")
var ErrUnknownCommand = errors.New("unknown command")

type CameraStatus struct {
	Name       string
	Plugin     string
	Resolution string
	Running    bool
	Stats      recorder.Stats
}

func NewSentryServer(registry *recorder.Registry, clips IClipCatalog, config *Config) *SentryServer {
	return &SentryServer{
		registry: registry,
		clips:    clips,
		config:   config}
}

func (x *SentryServer) Router() http.Handler {
	router := chi.NewMux()
	router.Route(x.config.PathPrefix, func(r chi.Router) {
		r.Get("/v1/cameras", x.CamerasHandler)
		for _, prefix := range []string{"/v1", "/v1/cameras/{camera}"} {
			r.Get(prefix+"/stream", x.StreamHandler)
			r.Get(prefix+"/snapshot", x.SnapshotHandler)
			r.Get(prefix+"/config", x.ConfigReadHandler)
			r.Get(prefix+"/stats", x.StatsHandler)
			r.Get(prefix+"/clips", x.ClipsHandler)
			// list formats and frame sizes supported by device
			r.Get(prefix+"/formats", x.FormatsHandler)
			r.Get(prefix+"/command", x.CommandHandler)
		}
	})
	return router
}

func (x *SentryServer) checkAPIKey(r *http.Request) bool {
	if x.config.ApiKey == "" {
		return true
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get("X-Api-Key")
	}
	return key == x.config.ApiKey
}

// camera resolves the pipeline from the path or ?camera=, defaulting to the
// first configured camera.
func (x *SentryServer) camera(w http.ResponseWriter, r *http.Request) (*recorder.Pipeline, bool) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return nil, false
	}
	name := sink.Param(r, "camera")
	if name == "" {
		name = r.URL.Query().Get("camera")
	}
	pipeline, err := x.registry.Get(name)
	if err != nil {
		sink.SendError(w, err, http.StatusNotFound)
		return nil, false
	}
	return pipeline, true
}

func (x *SentryServer) CamerasHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	out := []CameraStatus{}
	for _, pipeline := range x.registry.All() {
		config := pipeline.Config()
		out = append(out, CameraStatus{
			Name:       config.Name,
			Plugin:     config.Plugin,
			Resolution: config.Resolution,
			Running:    pipeline.Running(),
			Stats:      pipeline.Stats()})
	}
	sink.SendPrettyJSON(r.Context(), w, out)
}

func (x *SentryServer) StreamHandler(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := x.camera(w, r)
	if !ok {
		return
	}
	x.StreamMJPEG(w, r, pipeline)
}

// StreamMJPEG pushes the latest cached frame at the camera's nominal rate
// until the client goes away. Frames are never read from the camera here.
func (x *SentryServer) StreamMJPEG(w http.ResponseWriter, r *http.Request, pipeline *recorder.Pipeline) {
	config := pipeline.Config()
	resolution, _ := base.LookupResolution(config.Resolution)
	placeholder := base.EmptyFrame(resolution.Width, resolution.Height)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+base.BOUNDARY[2:])
	w.Header().Set("Server", "Sentrycam")
	w.Header().Set("Connection", "Close")
	flusher, _ := w.(http.Flusher)
	for {
		startTime := time.Now().UnixMilli()
		jpeg := pipeline.Snapshot()
		if !base.ValidateJPEG(jpeg) {
			jpeg = placeholder
		}
		if err := base.WriteMjpeg(w, jpeg); err != nil {
			log.Warn().Str("component", "mjpeg-server").Str("name", config.Name).Msg("stream is dead")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-r.Context().Done():
			return
		default:
		}
		base.Sleep(int64(config.Rate), time.Now().UnixMilli()-startTime)
	}
}

func (x *SentryServer) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := x.camera(w, r)
	if !ok {
		return
	}
	jpeg := pipeline.Snapshot()
	if jpeg == nil {
		sink.SendError(w, ErrNoSnapshot, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(jpeg)))
	w.Header().Set("Last-Modified", pipeline.Cache().Time().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write(jpeg)
}

func (x *SentryServer) ConfigReadHandler(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := x.camera(w, r)
	if !ok {
		return
	}
	config := *pipeline.Config()
	if config.Pass != "" {
		config.Pass = "<masked>"
	}
	sink.SendPrettyJSON(r.Context(), w, config)
}

func (x *SentryServer) StatsHandler(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := x.camera(w, r)
	if !ok {
		return
	}
	sink.SendPrettyJSON(r.Context(), w, pipeline.Stats())
}

func (x *SentryServer) ClipsHandler(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := x.camera(w, r)
	if !ok {
		return
	}
	if x.clips == nil {
		sink.SendError(w, ErrNoCatalog, http.StatusServiceUnavailable)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	clips, err := x.clips.List(pipeline.Name(), limit)
	if err != nil {
		sink.SendError(w, err, http.StatusInternalServerError)
		return
	}
	sink.SendPrettyJSON(r.Context(), w, clips)
}

func (x *SentryServer) FormatsHandler(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := x.camera(w, r)
	if !ok {
		return
	}
	config := pipeline.Config()
	if config.Plugin != base.PLUGIN_BLACKJACK {
		sink.SendError(w, ErrFormatsUnsupported, http.StatusBadRequest)
		return
	}
	formats, err := blackjack.ListFormatsAndFrameSizes(config.Device)
	if err != nil {
		sink.SendError(w, err, http.StatusInternalServerError)
		return
	}
	sink.SendPrettyJSON(r.Context(), w, formats)
}

func (x *SentryServer) CommandHandler(w http.ResponseWriter, r *http.Request) {
	pipeline, ok := x.camera(w, r)
	if !ok {
		return
	}
	command := r.URL.Query().Get("command")
	switch command {
	case "stop":
		pipeline.Stop()
	case "start":
		pipeline.Start()
	case "reset":
		pipeline.Stop()
		pipeline.Start()
	default:
		sink.SendError(w, ErrUnknownCommand, http.StatusBadRequest)
		return
	}
	log.Info().Str("component", "server").Str("name", pipeline.Name()).Str("command", command).Msg("command")
	sink.SendPrettyJSON(r.Context(), w, CameraStatus{
		Name:       pipeline.Name(),
		Plugin:     pipeline.Config().Plugin,
		Resolution: pipeline.Config().Resolution,
		Running:    pipeline.Running(),
		Stats:      pipeline.Stats()})
}
