package system

import (
	"image"
	"testing"
)

func TestFramePool(t *testing.T) {
	p := NewFramePool()
	rect := image.Rect(0, 0, 16, 9)

	img := p.Get(rect)
	if img.Rect != rect || len(img.Pix) != 16*9*4 {
		t.Fatalf("unexpected buffer: %v, %d bytes", img.Rect, len(img.Pix))
	}
	p.Put(img)

	again := p.Get(rect)
	if again.Rect != rect {
		t.Errorf("reused buffer has rect %v", again.Rect)
	}

	// Unknown sizes are dropped, not pooled.
	p.Put(image.NewRGBA(image.Rect(0, 0, 3, 3)))
	if _, ok := p.pools[image.Rect(0, 0, 3, 3)]; ok {
		t.Error("Put should not create pools")
	}
	p.Put(nil)
}
