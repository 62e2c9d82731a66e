package screen

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/png" // Register PNG decoder for image.Decode
	"math"
	"sync"

	"github.com/corona10/goimagehash"
	"github.com/kbinani/screenshot"
	"github.com/nfnt/resize"
	"github.com/vcaesar/imgo"

	"github.com/ConserveLee/img-trace-macro/internal/config"
	"github.com/ConserveLee/img-trace-macro/internal/constants"
	"github.com/ConserveLee/img-trace-macro/internal/engine"
)

// Options tune capture and matching.
type Options struct {
	Display        int     // Display used when not capturing all screens
	Tolerance      float64 // Max RGB distance for a pixel to count as matching
	MaxFailRate    float64 // Fraction of opaque template pixels allowed to mismatch
	Scale          float64 // Template scale factor applied at load time
	SkipUnchanged  bool    // Reuse a miss when the frame is pixel-identical to the last one
	DumpFirstFrame string  // When set, the first captured frame is saved here
}

// DefaultOptions mirrors the package constants.
func DefaultOptions() Options {
	return Options{
		Tolerance:   constants.DefaultTolerance,
		MaxFailRate: constants.MaxFailRate,
		Scale:       constants.DefaultScale,
	}
}

// OptionsFromConfig maps the capture and match sections of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Display:        cfg.Capture.Display,
		Tolerance:      cfg.Match.Tolerance,
		MaxFailRate:    cfg.Match.MaxFailRate,
		Scale:          cfg.Match.Scale,
		SkipUnchanged:  cfg.Capture.SkipUnchanged,
		DumpFirstFrame: cfg.Capture.DumpFirstFrame,
	}
}

// Searcher handles screen capturing and template matching
type Searcher struct {
	opts      Options
	debugFunc func(string, ...interface{})

	mu        sync.Mutex
	templates map[string]image.Image
	lastMiss  map[string]frameKey // last frame that missed, per template
	dumped    bool
}

// NewSearcher creates a new instance
func NewSearcher(opts Options) *Searcher {
	if opts.Tolerance <= 0 {
		opts.Tolerance = constants.DefaultTolerance
	}
	if opts.Scale <= 0 {
		opts.Scale = constants.DefaultScale
	}
	return &Searcher{
		opts:      opts,
		debugFunc: func(string, ...interface{}) {},
		templates: make(map[string]image.Image),
		lastMiss:  make(map[string]frameKey),
	}
}

// SetDebugFunc sets the debug logging function
func (s *Searcher) SetDebugFunc(f func(string, ...interface{})) {
	s.debugFunc = f
}

// SetDisplayID sets the target display index for single-display capture
func (s *Searcher) SetDisplayID(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Display = index
}

// LoadImage loads an image from the filesystem
func (s *Searcher) LoadImage(path string) (image.Image, error) {
	img, err := imgo.Read(path)
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", path, err)
	}
	return img, nil
}

// Capture returns the current screen image. With allScreens it grabs the union
// of every active display, like a virtual desktop screenshot.
func (s *Searcher) Capture(allScreens bool) (engine.Frame, error) {
	rect, err := s.captureBounds(allScreens)
	if err != nil {
		return engine.Frame{}, err
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return engine.Frame{}, unavailable(fmt.Sprintf("failed to capture %v: %v", rect, err))
	}

	s.dumpOnce(img)
	return engine.Frame{Image: img, Origin: rect.Min}, nil
}

func (s *Searcher) captureBounds(allScreens bool) (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return image.Rectangle{}, unavailable("no active displays")
	}

	var rect image.Rectangle
	if allScreens {
		for i := 0; i < n; i++ {
			rect = rect.Union(screenshot.GetDisplayBounds(i))
		}
	} else {
		s.mu.Lock()
		display := s.opts.Display
		s.mu.Unlock()
		if display >= n {
			return image.Rectangle{}, unavailable(fmt.Sprintf("display %d not present (%d active)", display, n))
		}
		rect = screenshot.GetDisplayBounds(display)
	}

	if rect.Empty() {
		return image.Rectangle{}, unavailable("display bounds are empty")
	}
	return rect, nil
}

func (s *Searcher) dumpOnce(img image.Image) {
	s.mu.Lock()
	if s.opts.DumpFirstFrame == "" || s.dumped {
		s.mu.Unlock()
		return
	}
	s.dumped = true
	path := s.opts.DumpFirstFrame
	s.mu.Unlock()

	if err := imgo.Save(path, img); err != nil {
		s.debugFunc("Failed to save first frame to %s: %v", path, err)
		return
	}
	s.debugFunc("Saved first frame to %s", path)
}

// Locate finds templateRef in frame and returns the screen-space centre of the match.
func (s *Searcher) Locate(frame engine.Frame, templateRef string) (image.Point, bool, error) {
	if frame.Image == nil {
		return image.Point{}, false, fmt.Errorf("empty frame")
	}
	tmpl, err := s.template(templateRef)
	if err != nil {
		return image.Point{}, false, err
	}

	var key frameKey
	if s.opts.SkipUnchanged {
		var unchanged bool
		if key, unchanged = s.unchanged(frame.Image, templateRef); unchanged {
			return image.Point{}, false, nil
		}
	}

	x, y, found := s.FindTemplate(frame.Image, tmpl)
	if !found {
		if key.valid() {
			s.mu.Lock()
			s.lastMiss[templateRef] = key
			s.mu.Unlock()
		}
		return image.Point{}, false, nil
	}

	s.mu.Lock()
	delete(s.lastMiss, templateRef)
	s.mu.Unlock()

	b := frame.Image.Bounds()
	tb := tmpl.Bounds()
	center := image.Point{
		X: frame.Origin.X + (x - b.Min.X) + tb.Dx()/2,
		Y: frame.Origin.Y + (y - b.Min.Y) + tb.Dy()/2,
	}
	s.debugFunc("Found [%s] at frame (%d, %d), screen center (%d, %d)", templateRef, x, y, center.X, center.Y)
	return center, true, nil
}

// frameKey identifies a frame. The perceptual hash is a cheap prefilter; only
// an equal digest of the exact pixels counts as unchanged.
type frameKey struct {
	hash   *goimagehash.ImageHash
	digest []byte
}

func (k frameKey) valid() bool { return k.hash != nil && k.digest != nil }

// unchanged reports whether img is pixel-identical to the last frame that
// missed templateRef, and returns the key to remember if this frame misses too.
func (s *Searcher) unchanged(img image.Image, templateRef string) (frameKey, bool) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		s.debugFunc("Frame hash failed: %v", err)
		return frameKey{}, false
	}

	s.mu.Lock()
	prev, ok := s.lastMiss[templateRef]
	s.mu.Unlock()

	key := frameKey{hash: hash, digest: pixelDigest(img)}
	if !ok {
		return key, false
	}
	if dist, err := prev.hash.Distance(hash); err != nil || dist != 0 {
		return key, false
	}
	if !bytes.Equal(prev.digest, key.digest) {
		return key, false
	}
	s.debugFunc("Frame unchanged since last miss of [%s], skipping match", templateRef)
	return key, true
}

// pixelDigest hashes the bounds and every pixel of img.
func pixelDigest(img image.Image) []byte {
	h := sha256.New()
	b := img.Bounds()
	var hdr [32]byte
	for i, v := range []int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y} {
		binary.LittleEndian.PutUint64(hdr[i*8:], uint64(int64(v)))
	}
	h.Write(hdr[:])

	if rgba, ok := img.(*image.RGBA); ok {
		rowLen := b.Dx() * 4
		for y := b.Min.Y; y < b.Max.Y; y++ {
			off := rgba.PixOffset(b.Min.X, y)
			h.Write(rgba.Pix[off : off+rowLen])
		}
		return h.Sum(nil)
	}

	var px [8]byte
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			binary.LittleEndian.PutUint16(px[0:], uint16(r))
			binary.LittleEndian.PutUint16(px[2:], uint16(g))
			binary.LittleEndian.PutUint16(px[4:], uint16(bl))
			binary.LittleEndian.PutUint16(px[6:], uint16(a))
			h.Write(px[:])
		}
	}
	return h.Sum(nil)
}

// template loads and caches a template, applying the configured scale.
func (s *Searcher) template(ref string) (image.Image, error) {
	s.mu.Lock()
	img, ok := s.templates[ref]
	s.mu.Unlock()
	if ok {
		return img, nil
	}

	img, err := s.LoadImage(ref)
	if err != nil {
		return nil, err
	}
	if s.opts.Scale != 1 {
		b := img.Bounds()
		w := uint(math.Round(float64(b.Dx()) * s.opts.Scale))
		h := uint(math.Round(float64(b.Dy()) * s.opts.Scale))
		if w == 0 || h == 0 {
			return nil, fmt.Errorf("template %s scaled to zero size", ref)
		}
		img = resize.Resize(w, h, img, resize.NearestNeighbor)
	}

	s.mu.Lock()
	s.templates[ref] = img
	s.mu.Unlock()
	s.debugFunc("Loaded template: %s (%dx%d)", ref, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

// FindTemplate searches for the 'template' image inside the 'screen' image.
// Returns x, y (top-left, in frame coordinates) and true if found.
func (s *Searcher) FindTemplate(screenImg, templateImg image.Image) (int, int, bool) {
	matches := s.findTemplates(screenImg, templateImg, 1)
	if len(matches) > 0 {
		return matches[0].X, matches[0].Y, true
	}
	return 0, 0, false
}

// FindAllTemplates searches for ALL occurrences of 'template' in 'screen'.
// Returns a slice of coordinates (top-left).
func (s *Searcher) FindAllTemplates(screenImg, templateImg image.Image) []image.Point {
	return s.findTemplates(screenImg, templateImg, -1)
}

// findTemplates is a sliding window scan stopping after limit matches (-1 for all).
func (s *Searcher) findTemplates(screenImg, templateImg image.Image, limit int) []image.Point {
	sBounds := screenImg.Bounds()
	tBounds := templateImg.Bounds()
	tWidth, tHeight := tBounds.Dx(), tBounds.Dy()
	tolerance := s.opts.Tolerance

	var matches []image.Point
	if tWidth == 0 || tHeight == 0 || sBounds.Dx() < tWidth || sBounds.Dy() < tHeight {
		return matches
	}

	// We check a few key pixels of the template against the screen for quick rejection
	// Points: Top-Left, Center, Bottom-Right
	keys := []image.Point{
		{X: 0, Y: 0},
		{X: tWidth / 2, Y: tHeight / 2},
		{X: tWidth - 1, Y: tHeight - 1},
	}
	type keyPixel struct {
		off     image.Point
		r, g, b uint32
	}
	var quick []keyPixel
	for _, k := range keys {
		r, g, b, a := rgba(templateImg, tBounds.Min.X+k.X, tBounds.Min.Y+k.Y)
		if a > 0 {
			quick = append(quick, keyPixel{off: k, r: r, g: g, b: b})
		}
	}

	// Key pixels are skipped when MaxFailRate allows mismatches, since any one may be a tolerated miss.
	useQuick := s.opts.MaxFailRate == 0

	for y := sBounds.Min.Y; y <= sBounds.Max.Y-tHeight; y++ {
	scan:
		for x := sBounds.Min.X; x <= sBounds.Max.X-tWidth; x++ {
			if useQuick {
				for _, k := range quick {
					sr, sg, sb, _ := rgba(screenImg, x+k.off.X, y+k.off.Y)
					if !colorSimilar(sr, sg, sb, k.r, k.g, k.b, tolerance) {
						continue scan
					}
				}
			}

			// Full check
			if s.match(screenImg, templateImg, x, y) {
				matches = append(matches, image.Point{X: x, Y: y})
				if limit > 0 && len(matches) >= limit {
					return matches
				}
				x += tWidth / 2
			}
		}
	}

	return matches
}

// match compares the template at (sx, sy), allowing MaxFailRate of opaque pixels to differ.
func (s *Searcher) match(screenImg, templateImg image.Image, sx, sy int) bool {
	tBounds := templateImg.Bounds()
	totalPixels := 0
	failedPixels := 0

	for ty := 0; ty < tBounds.Dy(); ty++ {
		for tx := 0; tx < tBounds.Dx(); tx++ {
			tr, tg, tb, ta := rgba(templateImg, tBounds.Min.X+tx, tBounds.Min.Y+ty)

			// Skip transparent pixels in template (act as wildcard)
			if ta == 0 {
				continue
			}

			totalPixels++
			sr, sg, sb, _ := rgba(screenImg, sx+tx, sy+ty)
			if !colorSimilar(sr, sg, sb, tr, tg, tb, s.opts.Tolerance) {
				failedPixels++
				if s.opts.MaxFailRate == 0 {
					return false
				}
				if totalPixels > 100 && float64(failedPixels)/float64(totalPixels) > s.opts.MaxFailRate {
					return false
				}
			}
		}
	}

	if totalPixels == 0 {
		return false
	}
	return float64(failedPixels)/float64(totalPixels) <= s.opts.MaxFailRate
}

// rgba returns color components normalized 0-255, plus Alpha
func rgba(img image.Image, x, y int) (r, g, b, a uint32) {
	r, g, b, a = img.At(x, y).RGBA()
	return r >> 8, g >> 8, b >> 8, a >> 8
}

func colorSimilar(r1, g1, b1, r2, g2, b2 uint32, tolerance float64) bool {
	// Simple Euclidean distance in RGB space
	dr := float64(r1) - float64(r2)
	dg := float64(g1) - float64(g2)
	db := float64(b1) - float64(b2)
	return math.Sqrt(dr*dr+dg*dg+db*db) <= tolerance
}
