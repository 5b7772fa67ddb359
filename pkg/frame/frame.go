// Package frame turns captured images into transportable frames. It mirrors
// images horizontally and encodes them as PNG or JPEG.
package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
)

// Encoding selects the wire format of an encoded frame.
type Encoding string

const (
	PNG  Encoding = "png"
	JPEG Encoding = "jpeg"
)

// DefaultJPEGQuality is used when an Encoder has no quality set.
const DefaultJPEGQuality = 90

// Frame is an encoded image ready to be handed to a transport.
type Frame struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Encoder encodes images with a fixed encoding.
type Encoder struct {
	Encoding    Encoding
	JPEGQuality int
}

// MIMEType returns the media type produced by the encoder.
func (e Encoder) MIMEType() string {
	if e.Encoding == JPEG {
		return "image/jpeg"
	}

	return "image/png"
}

// Encode encodes img. An empty Encoding is treated as PNG.
func (e Encoder) Encode(img image.Image) (Frame, error) {
	if img == nil {
		return Frame{}, fmt.Errorf("frame: encode: nil image")
	}

	var buf bytes.Buffer

	switch e.Encoding {
	case PNG, "":
		if err := png.Encode(&buf, img); err != nil {
			return Frame{}, fmt.Errorf("frame: encode png: %w", err)
		}
	case JPEG:
		q := e.JPEGQuality
		if q <= 0 {
			q = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return Frame{}, fmt.Errorf("frame: encode jpeg: %w", err)
		}
	default:
		return Frame{}, fmt.Errorf("frame: unsupported encoding %q", e.Encoding)
	}

	b := img.Bounds()

	return Frame{
		Data:     buf.Bytes(),
		MIMEType: e.MIMEType(),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// Mirror returns a copy of img flipped around its vertical axis. The result
// always starts at the origin.
func Mirror(img image.Image) *image.RGBA {
	b := img.Bounds()
	src := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	dst := image.NewRGBA(src.Bounds())
	w := b.Dx()
	for y := range b.Dy() {
		row := y * src.Stride
		for x := range w {
			si := row + x*4
			di := row + (w-1-x)*4
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}

	return dst
}
