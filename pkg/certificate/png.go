package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const maxTextWidth = Width - 80

// PNGRenderer draws certificates as 800x600 PNG images.
type PNGRenderer struct {
	options Options
	logger  *zap.Logger
	regular *opentype.Font
	bold    *opentype.Font
	italic  *opentype.Font
}

// NewPNGRenderer parses the bundled Go fonts.
func NewPNGRenderer(options Options, logger *zap.Logger) (*PNGRenderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	italic, err := opentype.Parse(goitalic.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse italic font: %w", err)
	}
	return &PNGRenderer{options: options.normalized(), logger: logger, regular: regular, bold: bold, italic: italic}, nil
}

// Render draws the certificate and encodes it as PNG.
func (r *PNGRenderer) Render(content Content) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))

	bg, err := decodeDataURL(content.Background)
	if err != nil {
		if !errors.Is(err, errNoBackground) {
			r.logger.Warn("certificate background unusable, drawing default", zap.Error(err))
		}
		drawDefaultBackground(img)
	} else {
		draw.ApproxBiLinear.Scale(img, img.Bounds(), bg, bg.Bounds(), draw.Src, nil)
	}

	for _, line := range layout(content, r.options) {
		if err := r.drawCentered(img, line); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode certificate png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PNGRenderer) drawCentered(dst *image.RGBA, line textLine) error {
	face, width, err := r.fit(line)
	if err != nil {
		return err
	}
	defer face.Close()

	x := (Width - width.Round()) / 2
	y := int(line.y)

	// white halo under each line
	halo := &font.Drawer{Dst: dst, Src: image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 160}), Face: face}
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		halo.Dot = fixed.P(x+d[0], y+d[1])
		halo.DrawString(line.text)
	}

	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(line.color), Face: face, Dot: fixed.P(x, y)}
	drawer.DrawString(line.text)
	return nil
}

// fit shrinks the font until the line fits inside the inner border.
func (r *PNGRenderer) fit(line textLine) (font.Face, fixed.Int26_6, error) {
	f := r.regular
	switch {
	case line.bold:
		f = r.bold
	case line.italic:
		f = r.italic
	}

	size := line.size
	for {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, 0, fmt.Errorf("create font face: %w", err)
		}
		width := font.MeasureString(face, line.text)
		if width.Round() <= maxTextWidth || size <= 10 {
			return face, width, nil
		}
		_ = face.Close()
		size -= 2
	}
}

func drawDefaultBackground(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(colorCream), image.Point{}, draw.Src)
	strokeRect(img, 20, 20, Width-40, Height-40, 15, colorOrange)
	strokeRect(img, 35, 35, Width-70, Height-70, 2, colorMidnight)
}

// strokeRect draws a rectangle outline whose stroke is centred on the path.
func strokeRect(img *image.RGBA, x, y, w, h, lineWidth float64, c color.Color) {
	half := lineWidth / 2
	outer := image.Rect(round(x-half), round(y-half), round(x+w+half), round(y+h+half))
	inner := image.Rect(round(x+half), round(y+half), round(x+w-half), round(y+h-half))
	src := image.NewUniform(c)

	bars := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y),
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y),
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y),
	}
	for _, bar := range bars {
		draw.Draw(img, bar, src, image.Point{}, draw.Src)
	}
}

func round(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
