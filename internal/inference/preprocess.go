package inference

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Brownie44l1/image-validator/internal/model"
	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Per-channel ImageNet statistics the backbone was trained with.
var (
	Mean = [3]float32{0.485, 0.456, 0.406}
	Std  = [3]float32{0.229, 0.224, 0.225}
)

var errEmptyImage = errors.New("empty image")

// Decode decodes any registered raster format. Failures are input errors.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", model.InputError(errEmptyImage)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", model.InputError(err)
	}
	return img, format, nil
}

// toRGB flattens img to 8-bit RGB. Alpha is dropped rather than composited.
func toRGB(img image.Image) *image.NRGBA {
	rgb := imaging.Clone(img)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}
	return rgb
}

// Preprocess converts img into a normalized CHW float tensor of
// 3×size×size values.
func Preprocess(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), toRGB(img), resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	data := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			i := y*width + x
			data[i] = (float32(r)/65535.0 - Mean[0]) / Std[0]
			data[plane+i] = (float32(g)/65535.0 - Mean[1]) / Std[1]
			data[2*plane+i] = (float32(b)/65535.0 - Mean[2]) / Std[2]
		}
	}
	return data
}
