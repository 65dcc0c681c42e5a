package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlab/exchange/internal/domain"
)

// pngBytes renders a solid-color PNG of the given dimensions.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeScalesToTargetWidth(t *testing.T) {
	n := NewNormalizer()
	src := pngBytes(t, 1600, 900)

	out, err := n.Normalize(context.Background(), bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, TargetWidth, decoded.Bounds().Dx())
	assert.Equal(t, 450, decoded.Bounds().Dy())
}

func TestNormalizeUpscalesNarrowImages(t *testing.T) {
	n := NewNormalizer()
	src := pngBytes(t, 400, 200)

	out, err := n.Normalize(context.Background(), bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, TargetWidth, decoded.Bounds().Dx())
}

func TestNormalizeRejectsOversizeBeforeDecode(t *testing.T) {
	n := NewNormalizer()

	// The reader is garbage; the declared size alone must trigger rejection.
	r := strings.NewReader("not an image")
	_, err := n.Normalize(context.Background(), r, MaxUploadBytes+1)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestNormalizeRejectsUndeclaredOversize(t *testing.T) {
	n := NewNormalizer()

	// Declared size lies; the actual stream is over the ceiling.
	big := bytes.NewReader(bytes.Repeat([]byte{0xff}, MaxUploadBytes+2))
	_, err := n.Normalize(context.Background(), big, 100)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(context.Background(), strings.NewReader("plain text"), 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestDataURLRoundTrip(t *testing.T) {
	payload := []byte{0xff, 0xd8, 0xff, 0x01, 0x02}
	url := EncodeDataURL(payload)

	assert.True(t, IsDataURL(url))
	assert.False(t, IsDataURL("https://blob.test/exchange/a/b.jpg"))

	back, err := DecodeDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, payload, back)

	_, err = DecodeDataURL("https://not-a-data-url")
	assert.Error(t, err)
}

func TestNormalizeToDataURL(t *testing.T) {
	n := NewNormalizer()
	src := pngBytes(t, 900, 300)

	url, err := n.NormalizeToDataURL(context.Background(), bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)
	require.True(t, IsDataURL(url))

	jpg, err := DecodeDataURL(url)
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(jpg))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}
