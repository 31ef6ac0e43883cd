package main

import (
	"image"
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/reflow/pkg/display"
)

var (
	pixelOn  = color.RGBA{R: 120, G: 200, B: 255, A: 255}
	pixelOff = color.RGBA{R: 10, G: 14, B: 20, A: 255}
)

// PanelWidget shows the controller's monochrome frame buffer scaled up.
type PanelWidget struct {
	widget.BaseWidget

	fb    *display.Mono
	scale float32

	// Last published frame (protected by mu)
	mu    sync.RWMutex
	frame image.Image
}

// NewPanel creates a panel widget for fb, magnified by scale.
func NewPanel(fb *display.Mono, scale float32) *PanelWidget {
	p := &PanelWidget{
		fb:    fb,
		scale: scale,
		frame: fb.Image(pixelOn, pixelOff),
	}
	p.ExtendBaseWidget(p)
	return p
}

// UpdateFrame fetches the latest frame. Call it on the fyne thread.
func (p *PanelWidget) UpdateFrame() {
	frame := p.fb.Image(pixelOn, pixelOff)

	p.mu.Lock()
	p.frame = frame
	p.mu.Unlock()

	// Refresh outside the lock; the renderer reads the frame.
	p.Refresh()
}

// CreateRenderer creates the widget renderer.
func (p *PanelWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(pixelOff)

	p.mu.RLock()
	img := canvas.NewImageFromImage(p.frame)
	p.mu.RUnlock()
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels

	return &panelRenderer{
		panel:   p,
		bg:      bg,
		img:     img,
		objects: []fyne.CanvasObject{bg, img},
	}
}

type panelRenderer struct {
	panel   *PanelWidget
	bg      *canvas.Rectangle
	img     *canvas.Image
	objects []fyne.CanvasObject
}

// MinSize keeps every panel pixel at least scale screen pixels wide.
func (r *panelRenderer) MinSize() fyne.Size {
	w, h := r.panel.fb.Size()
	return fyne.NewSize(float32(w)*r.panel.scale, float32(h)*r.panel.scale)
}

func (r *panelRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.img.Move(fyne.NewPos(0, 0))
	r.img.Resize(size)
}

func (r *panelRenderer) Refresh() {
	r.panel.mu.RLock()
	r.img.Image = r.panel.frame
	r.panel.mu.RUnlock()

	r.img.Refresh()
	r.bg.Refresh()
}

func (r *panelRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *panelRenderer) Destroy() {}
