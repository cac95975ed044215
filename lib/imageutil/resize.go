package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/getevo/evo/v2/lib/settings"
	"golang.org/x/image/draw"
)

// GetThumbnailSize returns the thumbnail edge length from settings (default 256)
func GetThumbnailSize() int {
	size := settings.Get("STORAGE.THUMBNAIL_SIZE").Int()
	if size <= 0 {
		size = 256
	}
	return size
}

// DecodeBase64 decodes a raw or data-URI base64 payload into bytes.
// Accepts both "AAAA..." and "data:image/jpeg;base64,AAAA..." forms.
func DecodeBase64(payload string) ([]byte, error) {
	data := payload
	if idx := strings.Index(data, ","); idx != -1 && strings.HasPrefix(data, "data:") {
		data = data[idx+1:]
	}
	data = strings.TrimSpace(data)

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return decoded, nil
}

// Thumbnail downsizes an image payload to a bounded square JPEG. Used for
// attachment previews; callers treat failures as non-fatal.
func Thumbnail(imageBytes []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	resized := resizeToFit(img, GetThumbnailSize())

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// resizeToFit scales an image down so its longest edge equals maxEdge,
// preserving aspect ratio. Images already smaller pass through untouched.
func resizeToFit(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxEdge && height <= maxEdge {
		return img
	}

	var targetW, targetH int
	if width >= height {
		targetW = maxEdge
		targetH = height * maxEdge / width
	} else {
		targetH = maxEdge
		targetW = width * maxEdge / height
	}
	if targetW < 1 {
		targetW = 1
	}
	if targetH < 1 {
		targetH = 1
	}

	resized := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	return resized
}

func init() {
	// Register PNG decoder
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
	// JPEG is registered by default
}
