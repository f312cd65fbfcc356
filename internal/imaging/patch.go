// Package imaging implements the dirty-rectangle patch engine used by
// status updates and the icon resize used by the flash pipeline.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	// Registered so Decode can format-sniff icons uploaded as GIF or PNG.
	_ "image/gif"
	_ "image/png"
)

// ErrNoDiff indicates two images are pixel-identical; callers treat
// this as "nothing to send" rather than an error condition.
type ErrNoDiff struct{}

func (ErrNoDiff) Error() string { return "imaging: images are identical" }

// Patch is the minimal rectangle containing every differing pixel
// between two equally-sized images, inclusive on all four bounds.
type Patch struct {
	X, Y  int
	Image image.Image
}

// FindPatch returns the tight bounding box of pixel differences between
// prior and next, cropped from next. Returns ErrNoDiff if the images
// are pixel-identical. Dimensions must match.
func FindPatch(prior, next image.Image) (Patch, error) {
	pb, nb := prior.Bounds(), next.Bounds()
	if pb.Dx() != nb.Dx() || pb.Dy() != nb.Dy() {
		return Patch{}, fmt.Errorf("imaging: dimension mismatch: %v vs %v", pb, nb)
	}

	width, height := nb.Dx(), nb.Dy()
	minX, minY := width, height
	maxX, maxY := -1, -1

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pr, pg, pbv, pa := prior.At(pb.Min.X+x, pb.Min.Y+y).RGBA()
			nr, ng, nbv, na := next.At(nb.Min.X+x, nb.Min.Y+y).RGBA()
			if pr != nr || pg != ng || pbv != nbv || pa != na {
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if x > maxX {
					maxX = x
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}

	if maxX < 0 {
		return Patch{}, ErrNoDiff{}
	}

	patchW := maxX - minX + 1
	patchH := maxY - minY + 1
	cropped := image.NewRGBA(image.Rect(0, 0, patchW, patchH))
	draw.Draw(cropped, cropped.Bounds(), next, image.Point{X: nb.Min.X + minX, Y: nb.Min.Y + minY}, draw.Src)

	return Patch{X: minX, Y: minY, Image: cropped}, nil
}

// Decode sniffs the image format of raw bytes.
func Decode(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}
	return img, nil
}

// EncodeJPEG encodes img as a JPEG at the quality the firmware expects.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// SameDimensions reports whether img has exactly width x height pixels.
func SameDimensions(img image.Image, width, height int) bool {
	b := img.Bounds()
	return b.Dx() == width && b.Dy() == height
}
