package thumbnail

import (
	"image"
	"io"

	"github.com/bamiaux/rez"
	"github.com/disintegration/gift"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
)

// readOrientation returns the EXIF orientation, 1 when absent.
func readOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

var orientationFilters = map[int]gift.Filter{
	2: gift.FlipHorizontal(),
	3: gift.Rotate180(),
	4: gift.FlipVertical(),
	5: gift.Transpose(),
	6: gift.Rotate270(),
	7: gift.Transverse(),
	8: gift.Rotate90(),
}

// orient applies the EXIF orientation so the pixels are upright.
func orient(src image.Image, orientation int) image.Image {
	filter, ok := orientationFilters[orientation]
	if !ok {
		return src
	}
	g := gift.New(filter)
	var dst draw.Image
	switch src.(type) {
	case *image.Gray:
		dst = image.NewGray(g.Bounds(src.Bounds()))
	default:
		dst = image.NewRGBA(g.Bounds(src.Bounds()))
	}
	g.Draw(dst, src)
	return dst
}

func resizeImage(img image.Image, width, height int) image.Image {
	switch img.(type) {
	case *image.YCbCr, *image.RGBA, *image.NRGBA, *image.Gray:
		if out, err := resizeLanczos(img, width, height); err == nil {
			return out
		}
	}
	return resizeFallback(img, width, height)
}

func resizeLanczos(img image.Image, width, height int) (image.Image, error) {
	var out image.Image
	rect := image.Rect(0, 0, width, height)
	switch src := img.(type) {
	case *image.Gray:
		out = image.NewGray(rect)
	case *image.RGBA:
		out = image.NewRGBA(rect)
	case *image.NRGBA:
		out = image.NewNRGBA(rect)
	case *image.YCbCr:
		out = image.NewYCbCr(rect, src.SubsampleRatio)
	}

	cfg, err := rez.PrepareConversion(out, img)
	if err != nil {
		return nil, err
	}
	cfg.Threads = 1
	converter, err := rez.NewConverter(cfg, rez.NewLanczosFilter(3))
	if err != nil {
		return nil, err
	}
	if err := converter.Convert(out, img); err != nil {
		return nil, err
	}
	return out, nil
}

func resizeFallback(img image.Image, width, height int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}
