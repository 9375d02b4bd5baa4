// Copyright © 2023 Sloan Childers
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string
	Rate float32
}

func TestLoadJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Name": "door", "Rate": 12.5}`), 0644))

	out := &sample{}
	require.NoError(t, LoadJson(path, out))
	assert.Equal(t, "door", out.Name)
	assert.Equal(t, float32(12.5), out.Rate)

	assert.Error(t, LoadJson(filepath.Join(t.TempDir(), "missing.json"), out))

	require.NoError(t, os.WriteFile(path, []byte(`{"Name": `), 0644))
	assert.Error(t, LoadJson(path, out))
}

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	InitLogger("WARN")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestSendError(t *testing.T) {
	w := httptest.NewRecorder()
	SendError(w, errors.New("camera not found"), http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := map[string]string{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "camera not found", body["error"])
}

func TestSendPrettyJSON(t *testing.T) {
	w := httptest.NewRecorder()
	SendPrettyJSON(context.Background(), w, &sample{Name: "door"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "    \"Name\": \"door\"")
}

func TestParam(t *testing.T) {
	router := chi.NewMux()
	got := ""
	router.Get("/v1/cameras/{camera}", func(w http.ResponseWriter, r *http.Request) {
		got = Param(r, "camera")
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/cameras/door", nil))
	assert.Equal(t, "door", got)
}

func TestShutdownHandlerRunsListenersOnce(t *testing.T) {
	shutdown := NewShutdownHandler()
	order := []int{}
	shutdown.AddListener(func() { order = append(order, 1) })
	shutdown.AddListener(func() { order = append(order, 2) })

	shutdown.Shutdown()
	shutdown.Shutdown()
	assert.Equal(t, []int{1, 2}, order)
}

func TestLoadEnvWithoutDotEnv(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	t.Setenv("SINK_TEST_ADDR", "127.0.0.1:9999")
	out := &struct {
		Addr  string `env:"SINK_TEST_ADDR"`
		Level string `env:"SINK_TEST_LEVEL" envDefault:"INFO"`
	}{}
	LoadEnv(out)
	assert.Equal(t, "127.0.0.1:9999", out.Addr)
	assert.Equal(t, "INFO", out.Level)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "<masked>", MaskSecret("API_KEY", "hunter2"))
	assert.Equal(t, "<masked>", MaskSecret("DD_API_KEY", "abc"))
	assert.Equal(t, "<masked>", MaskSecret("CAMERA_PASSWORD", "abc"))
	assert.Equal(t, "<masked>", MaskSecret("github_token", "abc"))
	assert.Equal(t, "<masked>", MaskSecret("AWS_SECRET_ACCESS_KEY", "abc"))
	assert.Equal(t, "0.0.0.0:80", MaskSecret("LISTEN_ADDR", "0.0.0.0:80"))
	assert.Equal(t, "TRACE", MaskSecret("LOG_LEVEL", "TRACE"))
}
