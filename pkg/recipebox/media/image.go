package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// blurHashSize bounds the thumbnail the placeholder is computed from.
const blurHashSize = 64

// ImageInfo describes a decoded upload.
type ImageInfo struct {
	Format      string // gif, jpeg, png or webp
	Width       int
	Height      int
	BlurHash    string
	ContentType string
}

// Extension returns the file extension for the decoded format.
func (i ImageInfo) Extension() string {
	if i.Format == "jpeg" {
		return ".jpg"
	}
	return "." + i.Format
}

// ErrNotImage is returned by InspectImage for data no registered decoder accepts.
var ErrNotImage = errors.New("upload a valid image: the file is either not an image or a corrupted image")

// MaxImagePixels bounds the decoded size of an upload.
const MaxImagePixels = 40_000_000

// ErrImageTooLarge is returned by InspectImage when the declared dimensions
// exceed MaxImagePixels.
var ErrImageTooLarge = fmt.Errorf("upload a valid image: images may have at most %d pixels", MaxImagePixels)

// InspectImage decodes data fully and computes its BlurHash. The header is
// checked first so oversized images are rejected before any pixels are decoded.
func InspectImage(data []byte) (ImageInfo, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, ErrNotImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, ErrNotImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return ImageInfo{}, ErrImageTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, ErrNotImage
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ImageInfo{}, ErrNotImage
	}

	// 4 horizontal, 3 vertical components
	hash, err := blurhash.Encode(4, 3, resizeForBlurHash(img))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("encode blurhash: %w", err)
	}

	return ImageInfo{
		Format:      format,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		BlurHash:    hash,
		ContentType: "image/" + format,
	}, nil
}

// resizeForBlurHash scales img to fit within blurHashSize.
func resizeForBlurHash(img image.Image) image.Image {
	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	if srcWidth <= blurHashSize && srcHeight <= blurHashSize {
		return img
	}

	var dstWidth, dstHeight int
	if srcWidth > srcHeight {
		dstWidth = blurHashSize
		dstHeight = max(srcHeight*blurHashSize/srcWidth, 1)
	} else {
		dstHeight = blurHashSize
		dstWidth = max(srcWidth*blurHashSize/srcHeight, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstWidth, dstHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
