package ocr

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// gaussian3 is the 3x3 binomial kernel; Convolve3x3 normalizes it by its sum.
var gaussian3 = [9]float64{
	1, 2, 1,
	2, 4, 2,
	1, 2, 1,
}

// LoadImage decodes an image file. Decode failures wrap ErrImageUnavailable.
func LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageUnavailable, path, err)
	}
	return img, nil
}

// Preprocess prepares a tooltip crop for recognition: grayscale, 2x linear
// upscale, 3x3 gaussian blur, then a global Otsu threshold. The result is strictly
// black (0) and white (255).
func Preprocess(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrImageUnavailable
	}
	b := img.Bounds()
	gray := imaging.Grayscale(img)
	gray = imaging.Resize(gray, b.Dx()*2, b.Dy()*2, imaging.Linear)
	gray = imaging.Convolve3x3(gray, gaussian3, &imaging.ConvolveOptions{Normalize: true})
	lum := toGray(gray)
	return binarize(lum, otsuThreshold(lum)), nil
}

// toGray copies the red channel of an already grayscale image.
func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}

// otsuThreshold picks the level that maximizes between-class variance of the
// histogram. A single-valued image yields 0.
func otsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	for _, v := range img.Pix {
		hist[v]++
	}
	total := float64(len(img.Pix))
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}
	var sumB, wB, best float64
	var t uint8
	for i := 0; i < 256; i++ {
		wB += float64(hist[i])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t
}

// binarize maps pixels above threshold to white and the rest to black.
func binarize(img *image.Gray, threshold uint8) *image.Gray {
	out := image.NewGray(img.Bounds())
	for i, v := range img.Pix {
		if v > threshold {
			out.Pix[i] = 255
		}
	}
	return out
}
