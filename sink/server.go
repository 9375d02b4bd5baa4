// Copyright © 2023 Sloan Childers
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/caarlos0/env/v6"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func InitLogger(level string) {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Fatal().Err(err).Msg("unable to configure logger")
	}
	zerolog.SetGlobalLevel(parsedLevel)
}

// LoadEnv reads .env when present; the process environment always wins.
func LoadEnv(output interface{}) {
	err := godotenv.Load(".env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg(".env")
		return
	}

	if err := env.Parse(output); err != nil {
		log.Fatal().Err(err).Msg("environment")
	}
}

func LoadJson(fileName string, cfg interface{}) error {
	// load collector configuration
	fh, err := os.Open(fileName)
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("load json open")
		return err
	}
	defer fh.Close()

	obj, err := io.ReadAll(fh)
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("load json read")
		return err
	}
	err = json.Unmarshal(obj, cfg)
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("load json parse")
		return err
	}
	return nil
}

func ListenAndServe(ListenAddr, SSLCertFile, SSLKeyFile string, router http.Handler) error {
	server := &http.Server{Addr: ListenAddr, Handler: router}
	var err error
	if SSLCertFile != "" {
		err = server.ListenAndServeTLS(SSLCertFile, SSLKeyFile)
	} else {
		err = server.ListenAndServe()
	}
	return err
}

// ShutdownHandler runs cleanup listeners, in the order they were added, once
// on SIGINT or SIGTERM.
type ShutdownHandler struct {
	mutex     sync.Mutex
	listeners []func()
	once      sync.Once
	exit      func(int)
}

func NewShutdownHandler() *ShutdownHandler {
	return &ShutdownHandler{exit: os.Exit}
}

func (x *ShutdownHandler) AddListener(listener func()) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.listeners = append(x.listeners, listener)
}

func (x *ShutdownHandler) Listen() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signals
		log.Info().Str("component", "shutdown").Str("signal", sig.String()).Msg("shutting down")
		x.Shutdown()
		x.exit(0)
	}()
}

func (x *ShutdownHandler) Shutdown() {
	x.once.Do(func() {
		x.mutex.Lock()
		listeners := append([]func(){}, x.listeners...)
		x.mutex.Unlock()
		for _, listener := range listeners {
			listener()
		}
	})
}

var secretKeys = []string{"KEY", "SECRET", "TOKEN", "PASS", "USER"}

func PrintEnvironment() {
	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)
		if len(pair) != 2 {
			continue
		}
		log.Debug().Str(pair[0], MaskSecret(pair[0], pair[1])).Msg("environment")
	}
}

// MaskSecret hides the value of credential-looking variables.
func MaskSecret(key, value string) string {
	upper := strings.ToUpper(key)
	for _, secret := range secretKeys {
		if strings.Contains(upper, secret) {
			return "<masked>"
		}
	}
	return value
}

func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func SendError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": err.Error(),
	})
}

func SendPrettyJSON(ctx context.Context, w http.ResponseWriter, data interface{}) {
	span, _ := tracer.StartSpanFromContext(ctx, "rendering_json")
	defer span.Finish()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	err := encoder.Encode(data)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Interface("data", data).Msg("unable to pretty json")
	}
}
