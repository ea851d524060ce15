package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"studioguideapi/models"

	"github.com/disintegration/imaging"
)

var ErrPartnerImageNotReady = errors.New("partner image not ready")

// 3:4 portrait cells, matching the generated partner looks
const (
	compositeCellWidth  = 768
	compositeCellHeight = 1024
	compositeGutter     = 32
	compositeMargin     = 48
)

// ComposeCoupleLook places the user photo and the partner look side by side on
// one white canvas and returns it as PNG.
func ComposeCoupleLook(user *models.ImagePayload, partner *models.ImagePayload) ([]byte, error) {
	if user == nil || len(user.Data) == 0 {
		return nil, fmt.Errorf("%w: missing user image", models.ErrNotAnImage)
	}
	if partner == nil || len(partner.Data) == 0 {
		return nil, ErrPartnerImageNotReady
	}

	userImg, err := imaging.Decode(bytes.NewReader(user.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode user image: %w", err)
	}
	partnerImg, err := imaging.Decode(bytes.NewReader(partner.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode partner image: %w", err)
	}

	width := 2*compositeCellWidth + compositeGutter + 2*compositeMargin
	height := compositeCellHeight + 2*compositeMargin
	canvas := imaging.New(width, height, color.White)

	for i, img := range []image.Image{userImg, partnerImg} {
		fitted := imaging.Fit(WhitenBackgroundFeathered(img, 235, 250), compositeCellWidth, compositeCellHeight, imaging.Lanczos)
		cellX := compositeMargin + i*(compositeCellWidth+compositeGutter)
		// centered horizontally, feet on the same baseline
		x := cellX + (compositeCellWidth-fitted.Bounds().Dx())/2
		y := compositeMargin + compositeCellHeight - fitted.Bounds().Dy()
		canvas = imaging.Paste(canvas, fitted, image.Pt(x, y))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode couple look: %w", err)
	}
	return buf.Bytes(), nil
}

// WhitenBackgroundFeathered pushes near-white pixels to pure white so two
// studio shots with slightly different backdrops blend into one canvas.
// Pixels at or below lowerThreshold luminance are untouched, pixels at or
// above upperThreshold become white, and the range between is blended.
func WhitenBackgroundFeathered(img image.Image, lowerThreshold, upperThreshold uint8) *image.NRGBA {
	if lowerThreshold >= upperThreshold {
		return imaging.Clone(img)
	}
	transitionRange := float64(upperThreshold - lowerThreshold)

	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		luminance := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
		switch {
		case luminance <= float64(lowerThreshold):
			return c
		case luminance >= float64(upperThreshold):
			return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
		}
		blendFactor := (luminance - float64(lowerThreshold)) / transitionRange
		blend := func(v uint8) uint8 {
			return uint8(math.Round(float64(v)*(1.0-blendFactor) + 255.0*blendFactor))
		}
		return color.NRGBA{R: blend(c.R), G: blend(c.G), B: blend(c.B), A: c.A}
	})
}
