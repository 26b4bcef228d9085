// render/summary_image.go
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gewnthar/countries/backend/models"
)

const (
	imageWidth  = 600
	imageHeight = 400
)

var (
	background = color.RGBA{R: 0x02, G: 0x09, B: 0x16, A: 0xff}
	foreground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	muted      = color.RGBA{R: 0xaa, G: 0xaa, B: 0xaa, A: 0xff}
)

// SummaryRenderer draws the country summary card as a PNG.
type SummaryRenderer struct {
	printer *message.Printer
	face    font.Face
}

func NewSummaryRenderer() *SummaryRenderer {
	return &SummaryRenderer{
		printer: message.NewPrinter(language.English),
		face:    basicfont.Face7x13,
	}
}

// Render lays out the title, the total, the top five and the refresh time on a dark card.
func (r *SummaryRenderer) Render(summary models.Summary) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	r.drawText(img, "Country Summary", 20, 24, 3, foreground)
	r.drawText(img, r.printer.Sprintf("Total Countries: %d", summary.TotalCountries), 20, 86, 2, foreground)
	r.drawText(img, "Top 5 Countries by Estimated GDP:", 20, 136, 2, foreground)

	for i, c := range summary.Top5Countries {
		line := fmt.Sprintf("%d. %s - %s", i+1, foldToASCII(c.Name), r.FormatGdp(c.EstimatedGdp))
		r.drawText(img, line, 40, 170+i*30, 2, foreground)
	}

	r.drawText(img, "Last refreshed: "+formatRefreshed(summary.LastRefreshedAt), 20, imageHeight-40, 1, muted)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode summary image: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatGdp prints a GDP with thousands separators; unknown values read "n/a".
func (r *SummaryRenderer) FormatGdp(g models.GdpEstimate) string {
	if !g.Known() {
		return "n/a"
	}
	return r.printer.Sprintf("%.2f", g.Amount())
}

// drawText renders s at the face's native size and scales it up by an
// integer factor so headings stay crisp with a bitmap font.
func (r *SummaryRenderer) drawText(dst *image.RGBA, s string, x, y, scale int, c color.Color) {
	metrics := r.face.Metrics()
	lineHeight := (metrics.Ascent + metrics.Descent).Ceil()
	width := font.MeasureString(r.face, s).Ceil()
	if width == 0 {
		return
	}

	src := image.NewRGBA(image.Rect(0, 0, width, lineHeight))
	d := &font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(0, metrics.Ascent.Ceil()),
	}
	d.DrawString(s)

	target := image.Rect(x, y, x+width*scale, y+lineHeight*scale)
	draw.NearestNeighbor.Scale(dst, target, src, src.Bounds(), draw.Over, nil)
}

func formatRefreshed(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldToASCII strips diacritics ("Côte d'Ivoire" -> "Cote d'Ivoire") since the
// bitmap face only covers ASCII. Anything still outside ASCII becomes '?'.
func foldToASCII(s string) string {
	folded, _, err := transform.String(asciiFolder, s)
	if err != nil {
		folded = s
	}
	out := []rune(folded)
	for i, r := range out {
		if r > unicode.MaxASCII {
			out[i] = '?'
		}
	}
	return string(out)
}
