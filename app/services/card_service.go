package services

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/hermes-crm/hermes/config"
)

// CardService renders greeting card images.
type CardService interface {
	Render(title, recipientLine string, date time.Time) (string, error)
}

// CardServiceImpl draws a deterministic PNG card: a vertical gradient
// background, a white center panel and three text lines.
type CardServiceImpl struct {
	cfg config.Image
}

// NewCardService creates a new card renderer
func NewCardService(cfg config.Image) CardService {
	if cfg.Width <= 0 {
		cfg.Width = 1200
	}
	if cfg.Height <= 0 {
		cfg.Height = 630
	}
	return &CardServiceImpl{cfg: cfg}
}

var (
	cardGradientTop    = color.RGBA{R: 0, G: 82, B: 63, A: 255}
	cardGradientBottom = color.RGBA{R: 0, G: 181, B: 102, A: 255}
	cardPanelColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	cardTitleColor     = color.RGBA{R: 5, G: 88, B: 55, A: 255}
	cardBodyColor      = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	cardFooterColor    = color.RGBA{R: 60, G: 60, B: 60, A: 255}
)

// Render draws the card and returns the path of the written PNG file.
func (s *CardServiceImpl) Render(title, recipientLine string, date time.Time) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create card directory: %w", err)
	}

	w, h := s.cfg.Width, s.cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	// Vertical gradient background.
	for y := 0; y < h; y++ {
		ratio := float64(y) / float64(h)
		line := color.RGBA{
			R: lerpChannel(cardGradientTop.R, cardGradientBottom.R, ratio),
			G: lerpChannel(cardGradientTop.G, cardGradientBottom.G, ratio),
			B: lerpChannel(cardGradientTop.B, cardGradientBottom.B, ratio),
			A: 255,
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, line)
		}
	}

	// White center panel.
	marginX := w / 15
	marginY := h / 8
	panel := image.Rect(marginX, marginY, w-marginX, h-marginY)
	draw.Draw(img, panel, &image.Uniform{C: cardPanelColor}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	innerX := marginX + w/15
	drawText(img, face, title, innerX, marginY+h/8, cardTitleColor)
	drawText(img, face, recipientLine, innerX, marginY+h/4, cardBodyColor)

	footer := fmt.Sprintf("Hermes * %s", date.Format("2006-01-02"))
	footerW := font.MeasureString(face, footer).Ceil()
	drawText(img, face, footer, w-marginX-w/15-footerW, h-marginY-h/16, cardFooterColor)

	path := filepath.Join(s.cfg.Dir, cardFilename(title, recipientLine, date))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create card file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode card: %w", err)
	}

	return path, nil
}

// cardFilename derives a stable name from the date plus a hash of the
// text, so re-rendering the same card overwrites instead of piling up.
func cardFilename(title, recipientLine string, date time.Time) string {
	h := fnv.New32a()
	h.Write([]byte(recipientLine))
	h.Write([]byte(title))
	return fmt.Sprintf("card_%s_%d.png", date.Format("2006-01-02"), h.Sum32()%10_000_000)
}

func lerpChannel(a, b uint8, ratio float64) uint8 {
	return uint8(float64(a)*(1-ratio) + float64(b)*ratio)
}

func drawText(img *image.RGBA, face font.Face, text string, x, y int, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
