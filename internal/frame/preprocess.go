package frame

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Recognition input is grayscale and capped in width: OCR quality on game
// text does not improve past this resolution and payloads shrink a lot.
const maxRecognizeWidth = 1280

// Prepare converts a frame image to grayscale and downscales wide captures
// before recognition.
func Prepare(img image.Image) image.Image {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	width := bounds.Dx()
	if width <= maxRecognizeWidth {
		return gray
	}

	scale := float64(maxRecognizeWidth) / float64(width)
	dst := image.NewGray(image.Rect(0, 0, maxRecognizeWidth, int(float64(bounds.Dy())*scale)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), gray, bounds, xdraw.Src, nil)
	return dst
}

// EncodePNG serializes an image for transport to the recognition service.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
