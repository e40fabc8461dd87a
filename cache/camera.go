package cache

import (
	"fmt"

	"github.com/pithecene-io/physlink/types"
)

type pixel struct {
	rgba  [4]byte
	depth float32
	seg   int32
}

// Camera accumulates one camera image. Width and height are fixed when
// the final chunk arrives.
type Camera struct {
	pixels Chunked[pixel]
	width  int
	height int
}

// Put stores n pixels starting at pixel index start. rgba carries four
// bytes per pixel.
func (c *Camera) Put(start int, rgba []byte, depth []float32, seg []int32, remaining, width, height int) error {
	n := len(depth)
	if len(rgba) != 4*n || len(seg) != n {
		return fmt.Errorf("%w: %d rgba bytes, %d depth, %d segmentation values", ErrChunkRange, len(rgba), n, len(seg))
	}
	chunk := make([]pixel, n)
	for i := range chunk {
		copy(chunk[i].rgba[:], rgba[4*i:4*i+4])
		chunk[i].depth = depth[i]
		chunk[i].seg = seg[i]
	}
	if err := c.pixels.Put(start, chunk, remaining); err != nil {
		return err
	}
	if remaining == 0 {
		c.width, c.height = width, height
	}
	return nil
}

// NumPixels returns the number of pixels held.
func (c *Camera) NumPixels() int {
	return c.pixels.Len()
}

// Reset drops the image.
func (c *Camera) Reset() {
	c.pixels.Reset()
	c.width, c.height = 0, 0
}

// Snapshot returns a copy of the image.
func (c *Camera) Snapshot() types.CameraImage {
	img := types.CameraImage{
		Width:        c.width,
		Height:       c.height,
		RGBA:         make([]byte, 0, 4*len(c.pixels.items)),
		Depth:        make([]float32, 0, len(c.pixels.items)),
		Segmentation: make([]int32, 0, len(c.pixels.items)),
	}
	for _, p := range c.pixels.items {
		img.RGBA = append(img.RGBA, p.rgba[:]...)
		img.Depth = append(img.Depth, p.depth)
		img.Segmentation = append(img.Segmentation, p.seg)
	}
	return img
}
