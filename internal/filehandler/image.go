package filehandler

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	// WebP uploads are decoded through image.Decode.
	_ "golang.org/x/image/webp"
)

// DefaultMaxDimension bounds the longest edge of a standalone image before it
// is sent to the editor. Keeps request payloads small.
const DefaultMaxDimension = 1536

// DefaultJPEGQuality is the quality used for every re-encoded image.
const DefaultJPEGQuality = 95

// Image is raster data together with its media type. It is the unit passed
// between extraction, the editor and the archiver.
type Image struct {
	MIMEType string
	Data     []byte
}

// IsZero reports whether the image carries no data.
func (img Image) IsZero() bool {
	return len(img.Data) == 0
}

// DataURL renders the image as a self-describing data: URL.
func (img Image) DataURL() string {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// NormalizeOptions controls how standalone images are prepared.
type NormalizeOptions struct {
	MaxDimension int
	JPEGQuality  int
}

func (o NormalizeOptions) withDefaults() NormalizeOptions {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.JPEGQuality <= 0 || o.JPEGQuality > 100 {
		o.JPEGQuality = DefaultJPEGQuality
	}
	return o
}

// NormalizeImage decodes an uploaded image, applies its EXIF orientation,
// downscales it so the longest edge is at most opts.MaxDimension, flattens
// any transparency onto white and re-encodes it as JPEG.
func NormalizeImage(data []byte, opts NormalizeOptions) (Image, error) {
	opts = opts.withDefaults()

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	if origWidth == 0 || origHeight == 0 {
		return Image{}, fmt.Errorf("image has no pixels")
	}

	newWidth, newHeight := fitDimensions(origWidth, origHeight, opts.MaxDimension)

	var scaled image.Image = src
	if newWidth != origWidth || newHeight != origHeight {
		scaled = imaging.Resize(src, newWidth, newHeight, imaging.Lanczos)
	}

	out, err := EncodeJPEG(flatten(scaled), opts.JPEGQuality)
	if err != nil {
		return Image{}, err
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", len(out.Data)).
		Msg("Image normalized")

	return out, nil
}

// ToJPEG returns img unchanged when it already is a JPEG, otherwise decodes
// it, flattens it onto white and re-encodes it.
func ToJPEG(img Image, quality int) (Image, error) {
	if img.MIMEType == MIMETypeJPEG {
		return img, nil
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode %s image: %w", img.MIMEType, err)
	}
	return EncodeJPEG(flatten(decoded), quality)
}

// EncodeJPEG encodes img as JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) (Image, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return Image{}, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return Image{MIMEType: MIMETypeJPEG, Data: buf.Bytes()}, nil
}

// flatten composites img over an opaque white canvas of the same size.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// fitDimensions scales width/height so the longest edge equals maxDimension,
// preserving aspect ratio. Images already within bounds are returned as-is.
func fitDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(newHeight, 1)
	}

	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	return max(newWidth, 1), maxDimension
}
