// Copyright © 2023 Sloan Childers
package esp32

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/osintami/sentrycam/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mutex  sync.Mutex
	calls  []string
	failOn string
}

func (x *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if r.URL.Path != "/control" {
		http.NotFound(w, r)
		return
	}
	name := r.URL.Query().Get("var")
	x.calls = append(x.calls, name+"="+r.URL.Query().Get("val"))
	if name == x.failOn {
		http.Error(w, "unsupported", http.StatusInternalServerError)
	}
}

func newControl(t *testing.T, handler http.Handler) *Control {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	host, port, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	config := &base.CameraConfig{Name: "door", Addr: host, ControlPort: p}
	config.Defaults()
	return NewControl(config)
}

func TestConfigure(t *testing.T) {
	rec := &recorder{}
	control := newControl(t, rec)
	resolution, err := base.LookupResolution("SVGA")
	require.NoError(t, err)

	require.NoError(t, control.Configure(resolution, true, false))
	assert.Equal(t, []string{"framesize=9", "vflip=1", "hflip=0"}, rec.calls)
}

func TestConfigureCustomResolution(t *testing.T) {
	rec := &recorder{}
	control := newControl(t, rec)
	resolution := base.Resolution{Name: "custom", Width: 300, Height: 200}

	require.NoError(t, control.Configure(resolution, false, true))
	assert.Equal(t, []string{"vflip=0", "hflip=1"}, rec.calls)
}

func TestConfigurePartialFailure(t *testing.T) {
	rec := &recorder{failOn: "vflip"}
	control := newControl(t, rec)
	resolution, err := base.LookupResolution("VGA")
	require.NoError(t, err)

	err = control.Configure(resolution, true, true)
	assert.ErrorContains(t, err, "vflip=1")
	assert.Len(t, rec.calls, 3)
}

func TestConfigureUnreachable(t *testing.T) {
	config := &base.CameraConfig{Name: "door", Addr: "127.0.0.1", ControlPort: 1}
	control := NewControl(config)
	assert.Error(t, control.Configure(base.Resolution{Ordinal: 8}, false, false))
}
