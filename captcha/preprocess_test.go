package captcha

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestEnhance(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 12))
	for x := 0; x < 40; x++ {
		src.Set(x, 6, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	}
	path := filepath.Join(t.TempDir(), "captcha_1.png")
	require.NoError(t, imaging.Save(src, path))

	out, err := Enhance(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(path), "captcha_1_enhanced.png"), out)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	require.Equal(t, 80, img.Bounds().Dx())
	require.Equal(t, 24, img.Bounds().Dy())
}

func TestEnhanceMissingFile(t *testing.T) {
	_, err := Enhance(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}
