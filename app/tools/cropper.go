package tools

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// CropperWidget displays a screenshot and lets the user drag out a template region.
type CropperWidget struct {
	widget.BaseWidget

	// State
	originalImg image.Image
	startPos    fyne.Position
	currentPos  fyne.Position
	isDragging  bool

	// UI Elements
	raster    *canvas.Image
	selection *canvas.Rectangle

	// Callback
	OnSelected func(rect image.Rectangle)
}

func NewCropperWidget(img image.Image, onSelected func(image.Rectangle)) *CropperWidget {
	c := &CropperWidget{
		originalImg: img,
		OnSelected:  onSelected,
	}
	c.ExtendBaseWidget(c)

	c.raster = canvas.NewImageFromImage(img)
	c.raster.ScaleMode = canvas.ImageScalePixels // templates must keep exact pixels
	c.raster.FillMode = canvas.ImageFillContain

	c.selection = canvas.NewRectangle(color.RGBA{R: 255, A: 60})
	c.selection.StrokeColor = color.RGBA{R: 255, A: 255}
	c.selection.StrokeWidth = 2
	c.selection.Hide()

	return c
}

func (c *CropperWidget) CreateRenderer() fyne.WidgetRenderer {
	return &cropperRenderer{
		cropper: c,
		objects: []fyne.CanvasObject{c.raster, c.selection},
	}
}

// Mouse events
func (c *CropperWidget) Dragged(e *fyne.DragEvent) {
	if !c.isDragging {
		c.isDragging = true
		c.startPos = e.Position.Subtract(e.Dragged)
		c.selection.Show()
	}
	c.currentPos = e.Position
	c.Refresh()
}

func (c *CropperWidget) DragEnd() {
	c.isDragging = false
	c.Refresh()
	if c.OnSelected == nil {
		return
	}
	// Selection stays visible until the next tap.
	sel := selectionBox(c.startPos, c.currentPos)
	if r := mapSelection(c.Size(), c.originalImg.Bounds(), sel); !r.Empty() {
		c.OnSelected(r)
	}
}

func (c *CropperWidget) Tapped(e *fyne.PointEvent) {
	c.startPos = e.Position
	c.currentPos = e.Position
	c.selection.Hide()
	c.Refresh()
}

func (c *CropperWidget) Cursor() desktop.Cursor {
	return desktop.CrosshairCursor
}

// viewRect is an axis-aligned box in widget coordinates.
type viewRect struct {
	X, Y, W, H float32
}

func selectionBox(a, b fyne.Position) viewRect {
	return viewRect{
		X: min(a.X, b.X),
		Y: min(a.Y, b.Y),
		W: max(a.X, b.X) - min(a.X, b.X),
		H: max(a.Y, b.Y) - min(a.Y, b.Y),
	}
}

// fitContain returns where an image of imgBounds is drawn inside view with
// ImageFillContain: scaled to fit and centred on the other axis.
func fitContain(view fyne.Size, imgBounds image.Rectangle) viewRect {
	if view.Width == 0 || view.Height == 0 || imgBounds.Empty() {
		return viewRect{}
	}
	aspect := float32(imgBounds.Dx()) / float32(imgBounds.Dy())
	if view.Width/view.Height > aspect {
		// View is wider: fit height
		w := view.Height * aspect
		return viewRect{X: (view.Width - w) / 2, W: w, H: view.Height}
	}
	h := view.Width / aspect
	return viewRect{Y: (view.Height - h) / 2, W: view.Width, H: h}
}

// mapSelection converts a selection in widget coordinates into image pixels.
// The result is clipped to imgBounds and empty when the selection misses the image.
func mapSelection(view fyne.Size, imgBounds image.Rectangle, sel viewRect) image.Rectangle {
	drawn := fitContain(view, imgBounds)
	if drawn.W == 0 || drawn.H == 0 {
		return image.Rectangle{}
	}

	left := max(drawn.X, sel.X)
	top := max(drawn.Y, sel.Y)
	right := min(drawn.X+drawn.W, sel.X+sel.W)
	bottom := min(drawn.Y+drawn.H, sel.Y+sel.H)
	if right <= left || bottom <= top {
		return image.Rectangle{}
	}

	scaleX := float32(imgBounds.Dx()) / drawn.W
	scaleY := float32(imgBounds.Dy()) / drawn.H
	r := image.Rect(
		int((left-drawn.X)*scaleX),
		int((top-drawn.Y)*scaleY),
		int((right-drawn.X)*scaleX),
		int((bottom-drawn.Y)*scaleY),
	).Add(imgBounds.Min)

	// float math can overshoot by a pixel
	return r.Intersect(imgBounds)
}

// --- Renderer ---

type cropperRenderer struct {
	cropper *CropperWidget
	objects []fyne.CanvasObject
}

func (r *cropperRenderer) Layout(s fyne.Size) {
	r.objects[0].Resize(s)
	r.objects[0].Move(fyne.NewPos(0, 0))
	r.placeSelection()
}

func (r *cropperRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *cropperRenderer) Refresh() {
	r.placeSelection()
	canvas.Refresh(r.cropper)
}

func (r *cropperRenderer) placeSelection() {
	box := selectionBox(r.cropper.startPos, r.cropper.currentPos)
	r.objects[1].Move(fyne.NewPos(box.X, box.Y))
	r.objects[1].Resize(fyne.NewSize(box.W, box.H))
}

func (r *cropperRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *cropperRenderer) Destroy() {}
