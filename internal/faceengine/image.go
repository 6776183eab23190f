package faceengine

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// maxCaptureSize caps the longest edge of a submitted capture before it is
// sent to the engine. Webcam frames and phone photos routinely exceed this
// and the detector gains nothing from the extra pixels.
const maxCaptureSize = 1280

// PrepareCapture validates that the data decodes as an image and downscales
// it to fit within maxCaptureSize while keeping aspect ratio. Images already
// small enough pass through untouched.
func PrepareCapture(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxCaptureSize && height <= maxCaptureSize {
		return data, nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxCaptureSize
		newHeight = int(float64(height) * float64(maxCaptureSize) / float64(width))
	} else {
		newHeight = maxCaptureSize
		newWidth = int(float64(width) * float64(maxCaptureSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}
