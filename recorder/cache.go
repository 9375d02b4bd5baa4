// Copyright © 2023 Sloan Childers
package recorder

import (
	"sync"
	"time"

	"github.com/osintami/sentrycam/base"
	"github.com/rs/zerolog/log"
)

type cacheEntry struct {
	frame base.IFrame
	once  sync.Once
	jpeg  []byte
}

// FrameCache holds the latest frame for any number of concurrent readers.
// Update swaps the whole entry; encoding happens on the first Snapshot of
// each entry and is shared by every reader after that.
type FrameCache struct {
	mutex   sync.RWMutex
	entry   *cacheEntry
	name    string
	quality int
	exif    *base.ExifInfo
}

func NewFrameCache(name string, quality int, exif *base.ExifInfo) *FrameCache {
	return &FrameCache{name: name, quality: quality, exif: exif}
}

// Update takes ownership of frame and releases the previous one.
func (x *FrameCache) Update(frame base.IFrame) {
	entry := &cacheEntry{frame: frame}
	x.mutex.Lock()
	old := x.entry
	x.entry = entry
	x.mutex.Unlock()
	if old != nil {
		// readers encode under the read lock, so nobody holds old now
		old.frame.Close()
	}
}

// Snapshot returns the encoded latest frame or nil when there is none. The
// returned slice is shared and must not be modified.
func (x *FrameCache) Snapshot() []byte {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	entry := x.entry
	if entry == nil {
		return nil
	}
	entry.once.Do(func() {
		data, err := entry.frame.ToJpeg(x.quality)
		if err != nil {
			log.Error().Err(err).Str("component", "cache").Str("name", x.name).Msg("JPEG encode")
			return
		}
		if x.exif != nil {
			info := *x.exif
			info.Time = entry.frame.Time()
			if stamped, err := base.WriteExif(&info, data); err == nil {
				data = stamped
			}
		}
		entry.jpeg = data
	})
	return entry.jpeg
}

func (x *FrameCache) Time() time.Time {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	if x.entry == nil {
		return time.Time{}
	}
	return x.entry.frame.Time()
}

func (x *FrameCache) Close() {
	x.mutex.Lock()
	old := x.entry
	x.entry = nil
	x.mutex.Unlock()
	if old != nil {
		old.frame.Close()
	}
}
