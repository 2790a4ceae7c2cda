package system

import (
	"image"
	"sync"
)

// FramePool recycles *image.RGBA buffers by size. Every frame of a run has
// the same dimensions, so after the first frame renders stop allocating.
type FramePool struct {
	mu    sync.RWMutex
	pools map[image.Rectangle]*sync.Pool
}

var frames = NewFramePool()

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

// GetFrame returns a buffer from the shared pool. Its pixels are not
// cleared; callers must overwrite the whole rectangle.
func GetFrame(rect image.Rectangle) *image.RGBA {
	return frames.Get(rect)
}

// PutFrame hands img back to the shared pool once nothing references it.
func PutFrame(img *image.RGBA) {
	frames.Put(img)
}

func (p *FramePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, ok := p.pools[rect]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[rect]
		if !ok {
			pool = &sync.Pool{New: func() any { return image.NewRGBA(rect) }}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}
	return pool.Get().(*image.RGBA)
}

// Put ignores images whose size was never requested through Get.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect]
	p.mu.RUnlock()
	if ok {
		pool.Put(img)
	}
}
