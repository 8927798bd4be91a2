package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Supported publish dimensions; provider output is scaled down to fit before
// upload so stored assets stay a predictable size.
const (
	maxPublishWidth    = 1080
	maxPublishHeight   = 1350
	publishJPEGQuality = 85
)

// NormalizeImage decodes provider output (PNG, JPEG or WebP), scales it down
// to fit the publish bounds when oversized, and re-encodes as JPEG
func NormalizeImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode provider image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxPublishWidth || h > maxPublishHeight {
		scale := float64(maxPublishWidth) / float64(w)
		if hs := float64(maxPublishHeight) / float64(h); hs < scale {
			scale = hs
		}
		dw := int(float64(w) * scale)
		dh := int(float64(h) * scale)

		dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: publishJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}
