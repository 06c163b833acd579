package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/disintegration/gift"
	"github.com/krishkalaria12/snap-thumbs/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MaxImageWidth  = 4000
	MaxImageHeight = 4000

	// Every resized variant is re-encoded to this format.
	OutputContentType = "image/png"
	OutputExtension   = ".png"
)

type DecodeError struct {
	Err error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("could not decode image: %v", e.Err)
}

func (e DecodeError) Unwrap() error {
	return e.Err
}

// Info describes an upload without decoding its pixels.
type Info struct {
	Width, Height int
	Format        string
}

func (i Info) ContentType() string {
	return "image/" + i.Format
}

// Inspect reads the image header and rejects unreadable, empty or oversized
// images before any pixel data is decoded.
func Inspect(src []byte) (Info, error) {
	if len(src) == 0 {
		return Info{}, DecodeError{Err: errors.New("no image data provided")}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return Info{}, DecodeError{Err: err}
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Info{}, DecodeError{Err: errors.New("image has zero size")}
	}
	if cfg.Width > MaxImageWidth || cfg.Height > MaxImageHeight {
		return Info{}, models.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("image too large (max %dx%d)", MaxImageWidth, MaxImageHeight),
		}
	}

	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// TargetWidth keeps the aspect ratio for the requested height, truncating
// toward zero. The result is never smaller than one pixel.
func TargetWidth(srcWidth, srcHeight, height int) int {
	width := int(int64(height) * int64(srcWidth) / int64(srcHeight))
	if width < 1 {
		width = 1
	}
	return width
}

// Resize scales src to the given height and returns it PNG-encoded.
// src is only read, so the same slice can be resized any number of times.
func Resize(src []byte, height int) ([]byte, error) {
	if height <= 0 {
		return nil, models.ValidationError{Field: "size", Message: "size must be a positive number of pixels"}
	}

	if _, err := Inspect(src); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, DecodeError{Err: err}
	}

	bounds := img.Bounds()
	width := TargetWidth(bounds.Dx(), bounds.Dy(), height)

	g := gift.New(gift.Resize(width, height, gift.LanczosResampling))
	dst := image.NewNRGBA(g.Bounds(bounds))
	g.Draw(dst, img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	return buf.Bytes(), nil
}

// OutputFilename swaps the extension of an uploaded name for the output one.
func OutputFilename(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "image"
	}
	return base + OutputExtension
}
