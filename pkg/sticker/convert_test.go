package sticker

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// animatedWebP builds a minimal VP8X container with the animation bit set.
func animatedWebP() []byte {
	data := make([]byte, 32)
	copy(data[0:4], "RIFF")
	copy(data[8:12], "WEBP")
	copy(data[12:16], "VP8X")
	data[16] = 10 // chunk size
	data[20] = 0x02
	return data
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIsAnimatedWebP(t *testing.T) {
	assert.True(t, IsAnimatedWebP(animatedWebP()))

	// Animation bit cleared
	still := animatedWebP()
	still[20] = 0x00
	assert.False(t, IsAnimatedWebP(still))

	// Wrong chunk tag
	noVP8X := animatedWebP()
	copy(noVP8X[12:16], "VP8L")
	assert.False(t, IsAnimatedWebP(noVP8X))

	// Too short
	assert.False(t, IsAnimatedWebP(animatedWebP()[:20]))
	assert.False(t, IsAnimatedWebP(nil))
}

func TestConvert_AnimatedPassthrough(t *testing.T) {
	raw := animatedWebP()

	encoded, err := Convert(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, encoded)
}

func TestConvert_ResizesToStickerDimension(t *testing.T) {
	raw := pngImage(t, 64, 48)

	encoded, err := Convert(raw)
	require.NoError(t, err)

	out, format, err := image.Decode(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, Dimension, out.Bounds().Dx())
	assert.Equal(t, Dimension, out.Bounds().Dy())
}

func TestConvert_Deterministic(t *testing.T) {
	raw := pngImage(t, 32, 32)

	first, err := Convert(raw)
	require.NoError(t, err)
	second, err := Convert(raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestConvert_EmptyInput(t *testing.T) {
	_, err := Convert(nil)
	assert.Error(t, err)

	_, err = Convert([]byte{})
	assert.Error(t, err)
}

func TestConvert_Garbage(t *testing.T) {
	_, err := Convert([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	webpURL := DataURL(animatedWebP())
	assert.True(t, strings.HasPrefix(webpURL, "data:image/webp;base64,"))

	pngURL := DataURL(pngImage(t, 8, 8))
	assert.True(t, strings.HasPrefix(pngURL, "data:image/png;base64,"))
}
