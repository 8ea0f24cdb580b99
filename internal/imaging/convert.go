package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"
)

// JPEGQuality is used for images embedded in exported documents
const JPEGQuality = 90

// JPEG is a baseline 8-bit RGB JPEG and its pixel size
type JPEG struct {
	Data   []byte
	Width  int
	Height int
}

// ToRGB flattens img onto an opaque white canvas
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// ToJPEG decodes data in any supported format and re-encodes it as JPEG
func ToJPEG(data []byte) (*JPEG, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	rgb := ToRGB(img)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &JPEG{
		Data:   buf.Bytes(),
		Width:  rgb.Bounds().Dx(),
		Height: rgb.Bounds().Dy(),
	}, nil
}

// ToPNG normalizes data for vision models. PNG input that is not HEIC
// passes through untouched; everything else is decoded and re-encoded.
// The returned MIME type is always image/png.
func ToPNG(data []byte, contentType string) ([]byte, string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "image/png" && !isHEIC(data) && !isPDF(data) {
		return data, "image/png", nil
	}

	img, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("converting %s to PNG: %w", describe(mimeType), err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}

func describe(mimeType string) string {
	if mimeType == "" {
		return "image"
	}
	return mimeType
}
