// Package display provides a monochrome frame buffer that renders text with
// tinyfont and can be shown by any front end (desktop window, headless dump).
package display

import (
	"image"
	"image/color"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// baseline is the distance from the top of a text cell to the font
// baseline; cursor positions address the top-left corner of the cell.
const baseline = 8

var (
	on  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	off = color.RGBA{}
)

// Mono is a double-buffered 1 bit per pixel display. Drawing goes to the
// back buffer; Update publishes it. Inverted drawing toggles pixels.
type Mono struct {
	w, h     int16
	back     []uint8
	cx, cy   int16
	inverted bool
	font     tinyfont.Fonter

	mu       sync.RWMutex
	front    []uint8
	frames   uint64
	onUpdate func()
}

var _ drivers.Displayer = (*Mono)(nil)

// New creates a blank w x h frame buffer.
func New(w, h int16) *Mono {
	return &Mono{
		w:     w,
		h:     h,
		back:  make([]uint8, int(w)*int(h)),
		front: make([]uint8, int(w)*int(h)),
		font:  &proggy.TinySZ8pt7b,
	}
}

// OnUpdate registers fn to be called after each published frame.
func (m *Mono) OnUpdate(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// Size returns the panel dimensions.
func (m *Mono) Size() (int16, int16) { return m.w, m.h }

// Clear blanks the back buffer and resets the cursor and draw mode.
func (m *Mono) Clear() {
	clear(m.back)
	m.cx, m.cy = 0, 0
	m.inverted = false
}

func (m *Mono) SetCursor(x, y int16) { m.cx, m.cy = x, y }

func (m *Mono) SetInverted(inverted bool) { m.inverted = inverted }

// Print draws s with the top-left of the text cell at the cursor.
func (m *Mono) Print(s string) {
	tinyfont.WriteLine(m, m.font, m.cx, m.cy+baseline, s, on)
}

// DrawPixel lights (or toggles when inverted) one pixel. Out of range
// coordinates are ignored.
func (m *Mono) DrawPixel(x, y int16) { m.SetPixel(x, y, on) }

// SetPixel implements drivers.Displayer.
func (m *Mono) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return
	}
	i := int(y)*int(m.w) + int(x)
	lit := c.A != 0 && (c.R|c.G|c.B) != 0
	switch {
	case m.inverted && lit:
		m.back[i] ^= 1
	case lit:
		m.back[i] = 1
	default:
		m.back[i] = 0
	}
}

// Pixel reports whether a back buffer pixel is lit.
func (m *Mono) Pixel(x, y int16) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.back[int(y)*int(m.w)+int(x)] != 0
}

// Update publishes the back buffer.
func (m *Mono) Update() error {
	m.mu.Lock()
	copy(m.front, m.back)
	m.frames++
	fn := m.onUpdate
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Display implements drivers.Displayer.
func (m *Mono) Display() error { return m.Update() }

// Frames returns the number of published frames.
func (m *Mono) Frames() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frames
}

// Image renders the last published frame with the given colours.
func (m *Mono) Image(fg, bg color.Color) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, int(m.w), int(m.h)), color.Palette{bg, fg})

	m.mu.RLock()
	defer m.mu.RUnlock()
	copy(img.Pix, m.front)
	return img
}
