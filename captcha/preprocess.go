package captcha

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// Enhance writes a grayscale, 2x upscaled, contrast-boosted and sharpened
// copy of the image next to it and returns the new path.
func Enhance(path string) (string, error) {
	src, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	b := src.Bounds()
	img := imaging.Grayscale(src)
	img = imaging.Resize(img, b.Dx()*2, b.Dy()*2, imaging.Lanczos)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.0)

	ext := filepath.Ext(path)
	out := strings.TrimSuffix(path, ext) + "_enhanced.png"
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("save %s: %w", out, err)
	}
	return out, nil
}
