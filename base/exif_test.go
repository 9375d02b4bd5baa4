// Copyright © 2023 Sloan Childers
package base

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
	"github.com/stretchr/testify/assert"
)

func TestWriteExif(t *testing.T) {
	info := &ExifInfo{
		Artist:   "front-door",
		Make:     "OSINTAMI",
		Model:    "sentrycam",
		Host:     "localhost",
		Time:     time.Now(),
		Location: &Location{Latitude: 37.337, Longitude: -122.418},
	}

	jpeg := EmptyFrame(320, 240)

	newJpeg, err := WriteExif(info, jpeg)
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(newJpeg, jpeg) {
		t.Fatal("The new []byte is equal to the old []byte.")
	}
	assert.True(t, ValidateJPEG(newJpeg))

	ec, _ := jis.NewJpegMediaParser().ParseBytes(newJpeg)
	root, _, err := ec.Exif()
	assert.NoError(t, err)
	results, _ := root.FindTagWithName("Artist")
	artistOut, err := results[0].GetRawBytes()
	assert.NoError(t, err)
	assert.Equal(t, info.Artist+"\x00", string(artistOut))
}

func TestWriteExifNotJpeg(t *testing.T) {
	in := []byte("definitely not a jpeg")
	out, err := WriteExif(&ExifInfo{Artist: "x"}, in)
	assert.Error(t, err)
	assert.Equal(t, in, out)
}

func TestGpsDegrees(t *testing.T) {
	expected := []exifcommon.Rational{
		{Numerator: 37, Denominator: 1},
		{Numerator: 46, Denominator: 1},
		{Numerator: 29, Denominator: 1},
	}
	actual := GpsDegrees(37.775)
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected %v, got %v", expected, actual)
	}

	actual = GpsDegrees(-37.775)
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected %v, got %v", expected, actual)
	}

	expected = []exifcommon.Rational{
		{Numerator: 122, Denominator: 1},
		{Numerator: 25, Denominator: 1},
		{Numerator: 4, Denominator: 1},
	}
	actual = GpsDegrees(-122.418)
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

func TestLocationRefs(t *testing.T) {
	assert.Equal(t, "N", latitudeRef(1))
	assert.Equal(t, "S", latitudeRef(-1))
	assert.Equal(t, "E", longitudeRef(1))
	assert.Equal(t, "W", longitudeRef(-1))
}
