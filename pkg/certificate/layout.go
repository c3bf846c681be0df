package certificate

import (
	"fmt"
	"image/color"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/id"
)

// Canvas size shared by every renderer.
const (
	Width  = 800
	Height = 600
)

// DefaultTitle heads every certificate unless overridden.
const DefaultTitle = "SERTIFIKAT LITERASI"

// Content is what gets printed on a certificate.
type Content struct {
	StudentName   string
	MaterialTitle string
	IssuedAt      time.Time
	// Background is an optional data URL; when it cannot be decoded the
	// built-in background is drawn instead.
	Background string
}

// Options tune the wording shared by the PNG and PDF renderers.
type Options struct {
	Title    string
	Locale   string
	Location *time.Location
}

type textLine struct {
	text   string
	size   float64
	bold   bool
	italic bool
	color  color.RGBA
	y      float64
}

var (
	colorCream    = color.RGBA{R: 0xff, G: 0xf7, B: 0xed, A: 0xff}
	colorOrange   = color.RGBA{R: 0xea, G: 0x58, B: 0x0c, A: 0xff}
	colorMidnight = color.RGBA{R: 0x1e, G: 0x1b, B: 0x4b, A: 0xff}
	colorBody     = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	colorMuted    = color.RGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xff}
)

// wib is Western Indonesia Time, used when no location is configured.
var wib = time.FixedZone("WIB", 7*60*60)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename builds the download name, e.g. Sertifikat-Ani-Putri.png.
func Filename(studentName, ext string) string {
	return fmt.Sprintf("Sertifikat-%s.%s", whitespaceRun.ReplaceAllString(studentName, "-"), ext)
}

func (o Options) normalized() Options {
	if strings.TrimSpace(o.Title) == "" {
		o.Title = DefaultTitle
	}
	if o.Location == nil {
		o.Location = wib
	}
	return o
}

func translator(locale string) locales.Translator {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "en":
		return en.New()
	default:
		return id.New()
	}
}

// FormatDate renders the long date with weekday in the given locale.
func FormatDate(t time.Time, locale string, loc *time.Location) string {
	if loc == nil {
		loc = wib
	}
	return translator(locale).FmtDateFull(t.In(loc))
}

func layout(c Content, o Options) []textLine {
	return []textLine{
		{text: o.Title, size: 44, bold: true, color: colorMidnight, y: 200},
		{text: "Diberikan kepada:", size: 24, color: colorBody, y: 260},
		{text: c.StudentName, size: 48, bold: true, color: colorOrange, y: 330},
		{text: "Telah menyelesaikan bacaan:", size: 22, bold: true, color: colorMidnight, y: 390},
		{text: `"` + c.MaterialTitle + `"`, size: 24, color: colorMidnight, y: 425},
		{text: "Pada tanggal: " + FormatDate(c.IssuedAt, o.Locale, o.Location), size: 18, italic: true, color: colorMuted, y: 500},
	}
}
