package certificate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// PDFRenderer lays the certificate out on a single 800x600pt page.
type PDFRenderer struct {
	options Options
	logger  *zap.Logger
}

// NewPDFRenderer constructs a PDF renderer.
func NewPDFRenderer(options Options, logger *zap.Logger) *PDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFRenderer{options: options.normalized(), logger: logger}
}

// Render produces the PDF document bytes.
func (r *PDFRenderer) Render(content Content) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: Width, Ht: Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	if err := r.drawBackground(pdf, content.Background); err != nil {
		r.logger.Warn("certificate background unusable, drawing default", zap.Error(err))
		drawDefaultPDFBackground(pdf)
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range layout(content, r.options) {
		style := ""
		if line.bold {
			style += "B"
		}
		if line.italic {
			style += "I"
		}
		text := tr(line.text)
		size := line.size
		pdf.SetFont("Helvetica", style, size)
		for pdf.GetStringWidth(text) > maxTextWidth && size > 10 {
			size -= 2
			pdf.SetFont("Helvetica", style, size)
		}
		setTextColor(pdf, line.color)
		pdf.Text((Width-pdf.GetStringWidth(text))/2, line.y, text)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) drawBackground(pdf *gofpdf.Fpdf, dataURL string) error {
	img, err := decodeDataURL(dataURL)
	if err != nil {
		if errors.Is(err, errNoBackground) {
			drawDefaultPDFBackground(pdf)
			return nil
		}
		return err
	}

	// re-encode so gofpdf only ever sees PNG, whatever the upload format was
	var buf bytes.Buffer
	if err := png.Encode(&buf, toRGBA(img)); err != nil {
		return fmt.Errorf("re-encode background: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("background", opts, &buf)
	if err := pdf.Error(); err != nil {
		return err
	}
	pdf.ImageOptions("background", 0, 0, Width, Height, false, opts, 0, "")
	return nil
}

func drawDefaultPDFBackground(pdf *gofpdf.Fpdf) {
	pdf.SetFillColor(int(colorCream.R), int(colorCream.G), int(colorCream.B))
	pdf.Rect(0, 0, Width, Height, "F")

	pdf.SetDrawColor(int(colorOrange.R), int(colorOrange.G), int(colorOrange.B))
	pdf.SetLineWidth(15)
	pdf.Rect(20, 20, Width-40, Height-40, "D")

	pdf.SetDrawColor(int(colorMidnight.R), int(colorMidnight.G), int(colorMidnight.B))
	pdf.SetLineWidth(2)
	pdf.Rect(35, 35, Width-70, Height-70, "D")
}

func setTextColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
