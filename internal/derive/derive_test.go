package derive

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return img
}

func TestDeriveVariantDimensions(t *testing.T) {
	out, err := New().Derive(encodeJPEG(t, 2000, 1500))
	require.NoError(t, err)
	require.Len(t, out, 3)

	want := map[model.Variant][2]int{
		model.VariantThumbnail: {150, 150},
		model.VariantMedium:    {800, 600},
		model.VariantLarge:     {1600, 1200},
	}
	for v, dims := range want {
		img := decodeJPEG(t, out[v])
		assert.Equal(t, dims[0], img.Bounds().Dx(), v)
		assert.Equal(t, dims[1], img.Bounds().Dy(), v)
	}
}

func TestDeriveThumbnailIsSquare(t *testing.T) {
	for _, size := range [][2]int{{3000, 1000}, {900, 2400}, {1024, 768}} {
		out, err := New().Derive(encodeJPEG(t, size[0], size[1]))
		require.NoError(t, err)
		img := decodeJPEG(t, out[model.VariantThumbnail])
		assert.Equal(t, image.Pt(150, 150), img.Bounds().Size(), "source %v", size)
	}
}

func TestDeriveWideSourceKeepsAspect(t *testing.T) {
	out, err := New().Derive(encodeJPEG(t, 3000, 1000))
	require.NoError(t, err)

	img := decodeJPEG(t, out[model.VariantMedium])
	b := img.Bounds()
	assert.LessOrEqual(t, b.Dx(), 800)
	assert.LessOrEqual(t, b.Dy(), 600)
	// 4:3 within one pixel of rounding.
	assert.InDelta(t, float64(b.Dy())*4/3, float64(b.Dx()), 1.5)
}

func TestDeriveNeverUpscales(t *testing.T) {
	out, err := New().Derive(encodeJPEG(t, 400, 300))
	require.NoError(t, err)

	for _, v := range []model.Variant{model.VariantMedium, model.VariantLarge} {
		img := decodeJPEG(t, out[v])
		assert.Equal(t, image.Pt(400, 300), img.Bounds().Size(), v)
	}
}

func TestDeriveSmallThumbnailStaysSmall(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want image.Point
	}{
		{name: "square", w: 100, h: 100, want: image.Pt(100, 100)},
		{name: "landscape", w: 120, h: 90, want: image.Pt(90, 90)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := New().Derive(encodeJPEG(t, tc.w, tc.h))
			require.NoError(t, err)
			assert.Equal(t, tc.want, decodeJPEG(t, out[model.VariantThumbnail]).Bounds().Size())
		})
	}
}

// withDimensions rewrites the IHDR of a PNG to declare w x h.
func withDimensions(t *testing.T, raw []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), raw...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDeriveRejectsDecompressionBomb(t *testing.T) {
	raw := withDimensions(t, encodePNG(t, 8, 8, color.NRGBA{A: 255}), 30000, 30000)
	_, err := New().Derive(raw)
	require.ErrorIs(t, err, model.ErrProcessing)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDeriveLargeRoundTrip(t *testing.T) {
	out, err := New().Derive(encodeJPEG(t, 1600, 1200))
	require.NoError(t, err)

	img := decodeJPEG(t, out[model.VariantLarge])
	assert.Equal(t, image.Pt(1600, 1200), img.Bounds().Size())

	var again bytes.Buffer
	require.NoError(t, jpeg.Encode(&again, img, &jpeg.Options{Quality: 90}))
	assert.Greater(t, again.Len(), 0)
}

func TestDeriveFlattensTransparentPNG(t *testing.T) {
	raw := encodePNG(t, 1200, 900, color.NRGBA{R: 200, G: 40, B: 40, A: 0})
	out, err := New().Derive(raw)
	require.NoError(t, err)

	img := decodeJPEG(t, out[model.VariantMedium])
	r, g, b, a := img.At(400, 300).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	// JPEG is lossy; the colour only needs to stay clearly red.
	assert.Greater(t, r>>8, uint32(150))
	assert.Less(t, g>>8, uint32(100))
	assert.Less(t, b>>8, uint32(100))
}

func TestDeriveRejectsGarbage(t *testing.T) {
	_, err := New().Derive([]byte("definitely not an image"))
	assert.ErrorIs(t, err, model.ErrProcessing)
}

func TestAccept(t *testing.T) {
	assert.NoError(t, Accept("photo.JPG", 1024))
	assert.NoError(t, Accept("photo.jpeg", 0))
	assert.NoError(t, Accept("plan.png", MaxFileSize))
	assert.ErrorIs(t, Accept("notes.txt", 10), model.ErrValidation)
	assert.ErrorIs(t, Accept("photo", 10), model.ErrValidation)
	assert.ErrorIs(t, Accept("huge.jpg", MaxFileSize+1), model.ErrValidation)
}

func TestSpecFor(t *testing.T) {
	s, ok := SpecFor(model.VariantLarge)
	require.True(t, ok)
	assert.Equal(t, 90, s.Quality)
	assert.Equal(t, "large", s.Folder)

	_, ok = SpecFor("poster")
	assert.False(t, ok)
}
