// Package captcha generates challenge text and the obfuscated image encoding it.
package captcha

import (
	"bytes"
	cryptorand "crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"warden/internal/platform/config"
)

// Alphabet excludes visually ambiguous characters (no I/O to confuse with
// 1/0, digits start at 2). Its 32 entries divide 256 evenly, so byte sampling
// draws uniformly.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generator renders captcha challenges. It retains no state between calls
// beyond the loaded font face; Issue draws fresh randomness every time.
type Generator struct {
	cfg  config.CaptchaConfig
	face font.Face
}

// New builds a Generator. Font loading never fails outright: a missing or
// unreadable font file falls back to the embedded Go Regular face, and as a
// last resort to a fixed bitmap face. Worst case is a lower-fidelity image.
func New(cfg config.CaptchaConfig, logger *slog.Logger) *Generator {
	return &Generator{cfg: cfg, face: loadFace(cfg, logger)}
}

func loadFace(cfg config.CaptchaConfig, logger *slog.Logger) font.Face {
	size := float64(cfg.FontSize)
	if size <= 0 {
		size = 40
	}

	if cfg.FontPath != "" {
		if data, err := os.ReadFile(cfg.FontPath); err == nil {
			if face, err := parseFace(data, size); err == nil {
				return face
			} else if logger != nil {
				logger.Warn("failed to parse configured font, falling back", "path", cfg.FontPath, "error", err)
			}
		} else if logger != nil {
			logger.Warn("failed to read configured font, falling back", "path", cfg.FontPath, "error", err)
		}
	}

	if face, err := parseFace(goregular.TTF, size); err == nil {
		return face
	}
	return basicfont.Face7x13
}

func parseFace(ttf []byte, size float64) (font.Face, error) {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build font face: %w", err)
	}
	return face, nil
}

// Text draws a fresh challenge string of the configured length from the
// confusable-free alphabet using crypto/rand.
func (g *Generator) Text() (string, error) {
	length := g.cfg.Length
	if length <= 0 {
		length = 6
	}
	buf := make([]byte, length)
	if _, err := cryptorand.Read(buf); err != nil {
		return "", fmt.Errorf("draw captcha randomness: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(out), nil
}

// Issue produces a challenge: the solution text and a PNG image encoding it
// with per-character rotation, jitter, color noise, line clutter, and a light
// blur.
func (g *Generator) Issue() (string, []byte, error) {
	text, err := g.Text()
	if err != nil {
		return "", nil, err
	}
	img, err := g.Render(text)
	if err != nil {
		return "", nil, err
	}
	return text, img, nil
}

// Render draws the obfuscated image for a given solution. Split from Issue so
// tests can render a known string.
func (g *Generator) Render(text string) ([]byte, error) {
	width, height := g.cfg.Width, g.cfg.Height
	if width <= 0 {
		width = 280
	}
	if height <= 0 {
		height = 90
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	// Background noise: one colored point per ~20 pixels.
	for i := 0; i < width*height/20; i++ {
		img.Set(rand.IntN(width), rand.IntN(height), randomDarkColor())
	}

	// Line clutter across the whole canvas.
	for i := 0; i < 8; i++ {
		drawLine(img,
			image.Point{rand.IntN(width), rand.IntN(height)},
			image.Point{rand.IntN(width), rand.IntN(height)},
			randomDarkColor())
	}

	g.drawGlyphs(img, text)
	boxBlur(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode captcha png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawGlyphs renders each character into its own tile, rotates it by a random
// angle, and pastes it with vertical jitter.
func (g *Generator) drawGlyphs(dst *image.RGBA, text string) {
	if len(text) == 0 {
		return
	}
	width := dst.Bounds().Dx()
	height := dst.Bounds().Dy()

	metrics := g.face.Metrics()
	ascent := metrics.Ascent.Ceil()
	glyphH := (metrics.Ascent + metrics.Descent).Ceil()
	tile := glyphH * 2
	if tile < 24 {
		tile = 24
	}

	margin := width / 10
	cellW := (width - 2*margin) / len(text)
	baseY := (height - glyphH) / 2

	for i, ch := range text {
		src := image.NewRGBA(image.Rect(0, 0, tile, tile))
		drawer := font.Drawer{
			Dst:  src,
			Src:  image.NewUniform(color.Black),
			Face: g.face,
			Dot:  fixed.P(tile/4, tile/2-glyphH/2+ascent),
		}
		drawer.DrawString(string(ch))

		angle := (rand.Float64()*2 - 1) * 25 * math.Pi / 180
		rotated := rotate(src, angle)

		x := margin + i*cellW - tile/4
		y := baseY - tile/2 + glyphH/2 + rand.IntN(21) - 10
		paste(dst, rotated, image.Point{x, y})
	}
}

func randomDarkColor() color.RGBA {
	return color.RGBA{
		R: uint8(rand.IntN(201)),
		G: uint8(rand.IntN(201)),
		B: uint8(rand.IntN(201)),
		A: 255,
	}
}

// drawLine steps along the segment one pixel at a time; good enough for
// clutter strokes.
func drawLine(img *image.RGBA, a, b image.Point, c color.RGBA) {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		img.Set(a.X, a.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		img.Set(a.X+int(t*dx+0.5), a.Y+int(t*dy+0.5), c)
	}
}

// rotate resamples src rotated by angle radians about its center using
// nearest-neighbor inverse mapping. Corners falling outside stay transparent.
func rotate(src *image.RGBA, angle float64) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewRGBA(bounds)
	cx, cy := float64(w)/2, float64(h)/2
	sin, cos := math.Sincos(-angle)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := float64(x) - cx
			fy := float64(y) - cy
			sx := int(fx*cos - fy*sin + cx + 0.5)
			sy := int(fx*sin + fy*cos + cy + 0.5)
			if sx >= 0 && sx < w && sy >= 0 && sy < h {
				dst.SetRGBA(x, y, src.RGBAAt(sx, sy))
			}
		}
	}
	return dst
}

// paste copies non-transparent pixels from src onto dst at offset.
func paste(dst *image.RGBA, src *image.RGBA, offset image.Point) {
	bounds := src.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := src.RGBAAt(x, y)
			if px.A == 0 {
				continue
			}
			dx, dy := offset.X+x, offset.Y+y
			if image.Pt(dx, dy).In(dst.Bounds()) {
				dst.SetRGBA(dx, dy, px)
			}
		}
	}
}

// boxBlur applies a single-pass 3x3 mean filter, softening glyph edges
// without hurting legibility.
func boxBlur(img *image.RGBA) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	src := image.NewRGBA(bounds)
	copy(src.Pix, img.Pix)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var r, g, b int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px := src.RGBAAt(x+dx, y+dy)
					r += int(px.R)
					g += int(px.G)
					b += int(px.B)
				}
			}
			img.SetRGBA(x, y, color.RGBA{uint8(r / 9), uint8(g / 9), uint8(b / 9), 255})
		}
	}
}
