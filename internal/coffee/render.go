package coffee

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/velkoldin-dev/tratyallday/internal/log"
)

var background = color.RGBA{R: 0x6f, G: 0x4e, B: 0x37, A: 0xff}

const (
	fallbackWidth  = 800
	fallbackHeight = 600
)

// Renderer draws coffee index pictures.
type Renderer struct {
	templatesDir string
	outputDir    string
	font         *opentype.Font
	pick         func(n int) int
	logger       *log.Logger
}

// NewRenderer loads the bundled font. outputDir defaults to the OS temp dir.
func NewRenderer(templatesDir, outputDir string, logger *log.Logger) (*Renderer, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Renderer{
		templatesDir: templatesDir,
		outputDir:    outputDir,
		font:         f,
		pick:         rand.IntN,
		logger:       logger.WithComponent(log.ComponentCoffee),
	}, nil
}

// Render writes a PNG for res and returns its path. The caller owns the file.
func (r *Renderer) Render(ctx context.Context, dayLabel string, res Result) (string, error) {
	img, err := r.canvas(ctx)
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	h := b.Dy()

	if err := r.drawCentered(img, "Твои траты за "+dayLabel, float64(h)*0.08, b.Min.Y+int(float64(h)*0.18), 2); err != nil {
		return "", err
	}
	if err := r.drawCentered(img, CupsText(res.Cups), float64(h)*0.12, b.Min.Y+int(float64(h)*0.55), 3); err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.CreateTemp(r.outputDir, "coffee-*.png")
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close output file: %w", err)
	}
	r.logger.DebugContext(ctx, "Coffee picture rendered", "path", out.Name(), "cups", res.Cups)
	return out.Name(), nil
}

// canvas returns a random template as RGBA, or a plain background when no
// template is available.
func (r *Renderer) canvas(ctx context.Context) (*image.RGBA, error) {
	templates := r.templates()
	if len(templates) == 0 {
		img := image.NewRGBA(image.Rect(0, 0, fallbackWidth, fallbackHeight))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
		return img, nil
	}

	path := templates[r.pick(len(templates))]
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", filepath.Base(path), err)
	}
	r.logger.DebugContext(ctx, "Using coffee template", "template", filepath.Base(path))

	img := image.NewRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	return img, nil
}

func (r *Renderer) templates() []string {
	if r.templatesDir == "" {
		return nil
	}
	entries, err := os.ReadDir(r.templatesDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			out = append(out, filepath.Join(r.templatesDir, e.Name()))
		}
	}
	return out
}

// drawCentered draws white text with a black outline of the given width,
// shrinking the font until the line fits the image.
func (r *Renderer) drawCentered(img *image.RGBA, text string, size float64, baseline, outline int) error {
	width := img.Bounds().Dx()
	var face font.Face
	for {
		f, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return fmt.Errorf("create font face: %w", err)
		}
		if font.MeasureString(f, text).Ceil() <= width*9/10 || size <= 8 {
			face = f
			break
		}
		f.Close()
		size *= 0.9
	}
	defer face.Close()

	x := img.Bounds().Min.X + (width-font.MeasureString(face, text).Ceil())/2
	d := &font.Drawer{Dst: img, Face: face}

	d.Src = image.Black
	for dx := -outline; dx <= outline; dx++ {
		for dy := -outline; dy <= outline; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d.Dot = fixed.P(x+dx, baseline+dy)
			d.DrawString(text)
		}
	}
	d.Src = image.White
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
	return nil
}
