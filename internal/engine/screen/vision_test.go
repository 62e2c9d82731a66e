package screen

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConserveLee/img-trace-macro/internal/engine"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

// patterned returns a w x h template with a blue frame around a red core.
func patterned(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), blue)
	fill(img, image.Rect(1, 1, w-1, h-1), red)
	return img
}

// canvas returns a white w x h screen with tmpl pasted at 'at'.
func canvas(w, h int, tmpl image.Image, at image.Point) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), white)
	tb := tmpl.Bounds()
	for y := 0; y < tb.Dy(); y++ {
		for x := 0; x < tb.Dx(); x++ {
			if _, _, _, a := tmpl.At(tb.Min.X+x, tb.Min.Y+y).RGBA(); a > 0 {
				img.Set(at.X+x, at.Y+y, tmpl.At(tb.Min.X+x, tb.Min.Y+y))
			}
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func exact() Options {
	opts := DefaultOptions()
	opts.MaxFailRate = 0
	return opts
}

func TestFindTemplate(t *testing.T) {
	tmpl := patterned(6, 4)
	screenImg := canvas(40, 30, tmpl, image.Pt(17, 9))

	x, y, found := NewSearcher(exact()).FindTemplate(screenImg, tmpl)

	require.True(t, found)
	assert.Equal(t, 17, x)
	assert.Equal(t, 9, y)
}

func TestFindTemplateMiss(t *testing.T) {
	tmpl := patterned(6, 4)
	screenImg := canvas(40, 30, patterned(2, 2), image.Pt(3, 3))

	_, _, found := NewSearcher(exact()).FindTemplate(screenImg, tmpl)
	assert.False(t, found)
}

func TestFindTemplateLargerThanScreen(t *testing.T) {
	_, _, found := NewSearcher(exact()).FindTemplate(patterned(4, 4), patterned(8, 8))
	assert.False(t, found)
}

func TestFindAllTemplates(t *testing.T) {
	tmpl := patterned(5, 5)
	screenImg := canvas(60, 20, tmpl, image.Pt(2, 3))
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			screenImg.Set(40+x, 10+y, tmpl.At(x, y))
		}
	}

	matches := NewSearcher(exact()).FindAllTemplates(screenImg, tmpl)
	assert.Equal(t, []image.Point{{X: 2, Y: 3}, {X: 40, Y: 10}}, matches)
}

func TestTransparentPixelsAreWildcards(t *testing.T) {
	tmpl := patterned(6, 6)
	tmpl.Set(0, 0, color.RGBA{})
	tmpl.Set(3, 3, color.RGBA{})
	screenImg := canvas(30, 30, patterned(6, 6), image.Pt(10, 12))
	screenImg.Set(10, 12, color.RGBA{G: 255, A: 255})

	x, y, found := NewSearcher(exact()).FindTemplate(screenImg, tmpl)
	require.True(t, found)
	assert.Equal(t, image.Pt(10, 12), image.Pt(x, y))
}

func TestToleranceAbsorbsColorNoise(t *testing.T) {
	tmpl := patterned(6, 6)
	shifted := image.NewRGBA(tmpl.Bounds())
	fill(shifted, shifted.Bounds(), color.RGBA{R: 20, G: 20, B: 235, A: 255})
	fill(shifted, image.Rect(1, 1, 5, 5), color.RGBA{R: 235, G: 20, B: 20, A: 255})
	screenImg := canvas(20, 20, shifted, image.Pt(4, 4))

	_, _, found := NewSearcher(exact()).FindTemplate(screenImg, tmpl)
	assert.True(t, found, "distance ~35 is inside the default tolerance")

	strict := exact()
	strict.Tolerance = 10
	_, _, found = NewSearcher(strict).FindTemplate(screenImg, tmpl)
	assert.False(t, found)
}

func TestMaxFailRate(t *testing.T) {
	tmpl := patterned(20, 20) // 400 opaque pixels
	screenImg := canvas(50, 50, tmpl, image.Pt(10, 10))
	// corrupt 8 pixels (2%) near the bottom of the match, past the early-abort window
	for i := 0; i < 8; i++ {
		screenImg.Set(15+i, 28, white)
	}

	_, _, found := NewSearcher(exact()).FindTemplate(screenImg, tmpl)
	assert.False(t, found, "exact matching rejects any mismatch")

	x, y, found := NewSearcher(DefaultOptions()).FindTemplate(screenImg, tmpl)
	require.True(t, found, "3% fail rate absorbs 2% noise")
	assert.Equal(t, image.Pt(10, 10), image.Pt(x, y))
}

func TestLocateReturnsScreenSpaceCenter(t *testing.T) {
	tmpl := patterned(8, 6)
	path := writePNG(t, tmpl)
	frame := engine.Frame{
		Image:  canvas(64, 48, tmpl, image.Pt(20, 10)),
		Origin: image.Pt(-1920, 100), // a display left of the primary one
	}

	center, ok, err := NewSearcher(exact()).Locate(frame, path)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, image.Pt(-1920+20+4, 100+10+3), center)
}

func TestLocateHandlesOffsetBounds(t *testing.T) {
	tmpl := patterned(4, 4)
	path := writePNG(t, tmpl)
	full := canvas(40, 40, tmpl, image.Pt(25, 25))
	sub := full.SubImage(image.Rect(20, 20, 40, 40))

	center, ok, err := NewSearcher(exact()).Locate(engine.Frame{Image: sub}, path)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, image.Pt(5+2, 5+2), center, "coordinates are relative to the frame's top-left")
}

func TestLocateMissingTemplate(t *testing.T) {
	frame := engine.Frame{Image: canvas(10, 10, patterned(2, 2), image.Pt(0, 0))}
	_, ok, err := NewSearcher(exact()).Locate(frame, filepath.Join(t.TempDir(), "absent.png"))

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestLocateEmptyFrame(t *testing.T) {
	_, _, err := NewSearcher(exact()).Locate(engine.Frame{}, "whatever.png")
	assert.Error(t, err)
}

func TestLocateCachesTemplate(t *testing.T) {
	tmpl := patterned(4, 4)
	path := writePNG(t, tmpl)
	frame := engine.Frame{Image: canvas(20, 20, tmpl, image.Pt(3, 3))}
	s := NewSearcher(exact())

	_, ok, err := s.Locate(frame, path)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, os.Remove(path))
	_, ok, err = s.Locate(frame, path)
	require.NoError(t, err, "second lookup is served from the cache")
	assert.True(t, ok)
}

func TestLocateScalesTemplate(t *testing.T) {
	small := patterned(4, 4)
	path := writePNG(t, small)

	big := image.NewRGBA(image.Rect(0, 0, 8, 8))
	fill(big, big.Bounds(), blue)
	fill(big, image.Rect(2, 2, 6, 6), red)
	frame := engine.Frame{Image: canvas(30, 30, big, image.Pt(10, 10))}

	opts := exact()
	opts.Scale = 2
	center, ok, err := NewSearcher(opts).Locate(frame, path)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, image.Pt(14, 14), center)
}

func TestSkipUnchangedFrame(t *testing.T) {
	tmpl := patterned(4, 4)
	path := writePNG(t, tmpl)
	opts := exact()
	opts.SkipUnchanged = true
	s := NewSearcher(opts)

	var debug []string
	s.SetDebugFunc(func(format string, _ ...interface{}) { debug = append(debug, format) })

	blank := image.NewRGBA(image.Rect(0, 0, 32, 32))
	fill(blank, blank.Bounds(), white)
	missFrame := engine.Frame{Image: blank}
	_, ok, err := s.Locate(missFrame, path)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Locate(missFrame, path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, debug, "Frame unchanged since last miss of [%s], skipping match")

	// a large patch changes the hash; the template sits in the corner
	hit := canvas(32, 32, patterned(8, 8), image.Pt(12, 12))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			hit.Set(2+x, 2+y, tmpl.At(x, y))
		}
	}
	hitFrame := engine.Frame{Image: hit}
	center, ok, err := s.Locate(hitFrame, path)
	require.NoError(t, err)
	assert.True(t, ok, "a changed frame is matched again")
	assert.Equal(t, image.Pt(4, 4), center)
}

// gradient returns a w x h frame whose grey level rises left to right.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		v := uint8(x * 255 / w)
		fill(img, image.Rect(x, 0, x+1, h), color.RGBA{R: v, G: v, B: v, A: 255})
	}
	return img
}

func TestSkipUnchangedFindsSmallTargetOnSameScene(t *testing.T) {
	button := image.NewRGBA(image.Rect(0, 0, 8, 4))
	fill(button, button.Bounds(), red)
	path := writePNG(t, button)
	opts := exact()
	opts.SkipUnchanged = true
	s := NewSearcher(opts)

	_, ok, err := s.Locate(engine.Frame{Image: gradient(640, 360)}, path)
	require.NoError(t, err)
	require.False(t, ok)

	// same scene with a small button: the downsampled hash barely moves
	scene := gradient(640, 360)
	fill(scene, image.Rect(300, 200, 308, 204), red)
	center, ok, err := s.Locate(engine.Frame{Image: scene}, path)

	require.NoError(t, err)
	assert.True(t, ok, "a button on screen is found even when the frame hash is unchanged")
	assert.Equal(t, image.Pt(304, 202), center)
}

func TestSkipUnchangedRequiresIdenticalPixels(t *testing.T) {
	before := gradient(64, 32)
	after := gradient(64, 32)
	after.Set(10, 10, red)

	s := NewSearcher(exact())
	key, unchanged := s.unchanged(after, "ref")
	require.False(t, unchanged)
	require.True(t, key.valid())

	// equal perceptual hash, different pixels
	s.lastMiss["ref"] = frameKey{hash: key.hash, digest: pixelDigest(before)}
	_, unchanged = s.unchanged(after, "ref")
	assert.False(t, unchanged)

	s.lastMiss["ref"] = key
	_, unchanged = s.unchanged(after, "ref")
	assert.True(t, unchanged)
}

func TestPixelDigest(t *testing.T) {
	a := gradient(16, 8)
	assert.Equal(t, pixelDigest(a), pixelDigest(gradient(16, 8)))

	b := gradient(16, 8)
	b.Set(15, 7, white)
	assert.NotEqual(t, pixelDigest(a), pixelDigest(b))

	// a sub-image hashes only its own window
	sub := a.SubImage(image.Rect(4, 2, 12, 6))
	cp := image.NewRGBA(sub.Bounds())
	for y := 2; y < 6; y++ {
		for x := 4; x < 12; x++ {
			cp.Set(x, y, a.At(x, y))
		}
	}
	assert.Equal(t, pixelDigest(sub), pixelDigest(cp))
	b.Set(0, 0, red) // outside the window
	assert.Equal(t, pixelDigest(sub), pixelDigest(b.SubImage(image.Rect(4, 2, 12, 6))))

	generic := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	assert.Len(t, pixelDigest(generic), 32)
}

func TestCaptureErrorMatchesUnavailable(t *testing.T) {
	err := unavailable("no active displays")
	assert.ErrorIs(t, err, engine.ErrCaptureUnavailable)
	assert.True(t, engine.IsCaptureUnavailable(err))
	assert.EqualError(t, err, "screen capture unavailable: no active displays")
}
