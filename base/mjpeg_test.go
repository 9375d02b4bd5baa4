// Copyright © 2023 Sloan Childers
package base

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMjpeg(t *testing.T) {
	var buf bytes.Buffer
	data := EmptyFrame(16, 16)
	require.NoError(t, WriteMjpeg(&buf, data))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, BOUNDARY+"\r\n"+CONTENT_TYPE+"\r\n"))
	assert.Contains(t, out, CONTENT_LENGTH)
	assert.True(t, bytes.Contains(buf.Bytes(), data))
}

func TestValidateJPEG(t *testing.T) {
	assert.True(t, ValidateJPEG(EmptyFrame(8, 8)))
	assert.False(t, ValidateJPEG(nil))
	assert.False(t, ValidateJPEG([]byte{0xFF}))
	assert.False(t, ValidateJPEG([]byte{0xFF, 0xD8, 0x00, 0x00}))
}

func TestMjpegWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mjpeg")
	writer, err := NewMjpegWriter(80)(path, 9.5, 16, 16)
	require.NoError(t, err)

	start := time.Unix(1682942400, 250000000)
	for i := 0; i < 3; i++ {
		frame, err := NewJpegFrame(EmptyFrame(16, 16), start.Add(time.Duration(i)*100*time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, writer.Write(frame))
	}
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, bytes.Count(data, []byte(BOUNDARY)))
	assert.Equal(t, 3, bytes.Count(data, []byte(X_FRAMERATE+"9.50\r\n")))
	assert.Contains(t, string(data), X_TIMESTAMP+"1682942400.250000\r\n")
	assert.Contains(t, string(data), X_TIMESTAMP+"1682942400.450000\r\n")
}

func TestMjpegWriterEmptyFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mjpeg")
	writer, err := NewMjpegWriter(80)(path, 10, 16, 16)
	require.NoError(t, err)
	defer writer.Close()

	frame, err := NewJpegFrame(EmptyFrame(16, 16), time.Now())
	require.NoError(t, err)
	frame.Close()
	assert.ErrorIs(t, writer.Write(frame), ErrEmptyFrame)
}
