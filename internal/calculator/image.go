package calculator

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxInputPixels caps the declared width*height of an uploaded image. The
// header is checked before any pixel data is decoded.
const MaxInputPixels = 4096 * 4096

// DecodeDataURL decodes "data:<mime>;base64,<payload>" or a bare base64 payload.
func DecodeDataURL(raw string) (image.Image, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return nil, ErrEmptyImage
	}

	if strings.HasPrefix(payload, "data:") {
		meta, data, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok {
			return nil, fmt.Errorf("%w: missing data separator", ErrInvalidImage)
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: data URL is not base64 encoded", ErrInvalidImage)
		}
		if !strings.HasPrefix(meta, "image/") {
			return nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidImage, strings.TrimSuffix(meta, ";base64"))
		}
		payload = data
	}

	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, payload)

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
	}
	if len(decoded) == 0 {
		return nil, ErrEmptyImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxInputPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxInputPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Normalize flattens img onto a black background, shrinks it to fit within
// maxSide pixels (0 keeps the original size) and encodes it as PNG.
func Normalize(img image.Image, maxSide int) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Empty() || isBlank(img) {
		return nil, ErrEmptyImage
	}

	background := imaging.New(bounds.Dx(), bounds.Dy(), color.Black)
	flat := imaging.Overlay(background, img, image.Pt(0, 0), 1.0)

	if maxSide > 0 && (bounds.Dx() > maxSide || bounds.Dy() > maxSide) {
		flat = imaging.Fit(flat, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// isBlank reports whether every pixel is fully transparent.
func isBlank(img image.Image) bool {
	switch src := img.(type) {
	case *image.NRGBA:
		return transparentPix(src.Pix)
	case *image.RGBA:
		return transparentPix(src.Pix)
	case *image.Gray, *image.Gray16, *image.YCbCr, *image.CMYK:
		return false
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				return false
			}
		}
	}
	return true
}

func transparentPix(pix []uint8) bool {
	for i := 3; i < len(pix); i += 4 {
		if pix[i] != 0 {
			return false
		}
	}
	return true
}
