// Copyright © 2023 Sloan Childers
package base

import (
	"bufio"
	"bytes"
	"math"
	"time"

	dsoprea "github.com/dsoprea/go-exif"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
	"github.com/rs/zerolog/log"
)

// ExifInfo is the metadata stamped into snapshots handed to consumers.
type ExifInfo struct {
	Artist   string
	Make     string
	Model    string
	Host     string
	Time     time.Time
	Location *Location
}

func WriteExif(info *ExifInfo, jpeg []byte) ([]byte, error) {
	intfc, err := jis.NewJpegMediaParser().ParseBytes(jpeg)
	if err != nil {
		log.Error().Err(err).Str("component", "image").Msg("ParseBytes")
		return jpeg, err
	}
	sl := intfc.(*jis.SegmentList)
	ib, err := sl.ConstructExifBuilder()
	if err != nil {
		log.Error().Err(err).Str("component", "image").Msg("ConstructExifBuilder")
		return jpeg, err
	}

	ifd0Ib, err := exif.GetOrCreateIbFromRootIb(ib, "IFD")
	if err != nil {
		return jpeg, err
	}
	exifIb, err := exif.GetOrCreateIbFromRootIb(ib, dsoprea.IfdPathStandardExif)
	if err != nil {
		return jpeg, err
	}

	ifd0Ib.SetStandardWithName("Artist", info.Artist)
	ifd0Ib.SetStandardWithName("Make", info.Make)
	ifd0Ib.SetStandardWithName("Model", info.Model)
	ifd0Ib.SetStandardWithName("HostComputer", info.Host)
	exifIb.SetStandardWithName("DateTimeOriginal", info.Time)

	if info.Location != nil {
		ifdGps, err := exif.GetOrCreateIbFromRootIb(ib, dsoprea.IfdPathStandardGps)
		if err == nil {
			ifdGps.SetStandardWithName("GPSLatitudeRef", latitudeRef(info.Location.Latitude))
			ifdGps.SetStandardWithName("GPSLatitude", GpsDegrees(info.Location.Latitude))
			ifdGps.SetStandardWithName("GPSLongitudeRef", longitudeRef(info.Location.Longitude))
			ifdGps.SetStandardWithName("GPSLongitude", GpsDegrees(info.Location.Longitude))
		}
	}

	if err := sl.SetExif(ib); err != nil {
		return jpeg, err
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := sl.Write(w); err != nil {
		return jpeg, err
	}
	w.Flush()

	return Copy(buf.Bytes()), nil
}

func latitudeRef(l float64) string {
	if l < 0 {
		return "S"
	}
	return "N"
}

func longitudeRef(l float64) string {
	if l < 0 {
		return "W"
	}
	return "E"
}

func GpsDegrees(l float64) []exifcommon.Rational {
	val := math.Abs(l)
	degrees := int(math.Floor(val))
	minutes := int(math.Floor(60 * (val - float64(degrees))))
	seconds := 3600 * (val - float64(degrees) - (float64(minutes) / 60))
	return []exifcommon.Rational{
		{Numerator: uint32(degrees), Denominator: 1},
		{Numerator: uint32(minutes), Denominator: 1},
		{Numerator: uint32(seconds), Denominator: 1},
	}
}
