package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned when a page cannot be decoded into pixels
var ErrUnsupportedImage = errors.New("unsupported image format")

// Preprocessor converts captured page images into the buffer the OCR engines read:
// a grayscale PNG, optionally downscaled.
type Preprocessor struct {
	maxDimension int
	grayscale    bool
}

// NewPreprocessor creates a new image preprocessor. maxDimension <= 0 keeps the
// original size.
func NewPreprocessor(maxDimension int, grayscale bool) *Preprocessor {
	return &Preprocessor{
		maxDimension: maxDimension,
		grayscale:    grayscale,
	}
}

// ToPixelBuffer decodes JPEG, PNG, GIF, WebP, TIFF or BMP data and re-encodes it as PNG
func (p *Preprocessor) ToPixelBuffer(imageData []byte) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	img = p.resize(img)
	if p.grayscale {
		img = toGray(img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode pixel buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// resize shrinks the image so its longest side is at most maxDimension,
// keeping the aspect ratio. Smaller images are never enlarged.
func (p *Preprocessor) resize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if p.maxDimension <= 0 || longest <= p.maxDimension {
		return img
	}

	scale := float64(p.maxDimension) / float64(longest)
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func toGray(img image.Image) image.Image {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}
