package sticker

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Dimension is the square size stickers are scaled to.
const Dimension = 512

// animation flag bit in the VP8X feature byte
const webpAnimationBit = 0x02

// IsAnimatedWebP reports whether data is an animated webp container: a VP8X
// chunk at offset 12 with the animation feature bit set at offset 20.
func IsAnimatedWebP(data []byte) bool {
	if len(data) <= 20 {
		return false
	}
	return bytes.Equal(data[12:16], []byte("VP8X")) && data[20]&webpAnimationBit != 0
}

// Convert turns a raw image into sticker-ready encoded bytes. Animated webp
// payloads pass through unchanged so the animation survives; everything else
// is decoded, scaled to Dimension x Dimension and re-encoded as PNG. The
// result is a pure function of the input bytes.
func Convert(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errors.New("sticker: no image data provided")
	}

	if IsAnimatedWebP(raw) {
		return raw, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, Dimension, Dimension))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// DataURL wraps encoded image bytes as a base64 data-URL string, the form
// artifacts are persisted in.
func DataURL(encoded []byte) string {
	return "data:" + mimeType(encoded) + ";base64," + base64.StdEncoding.EncodeToString(encoded)
}

func mimeType(encoded []byte) string {
	if len(encoded) >= 12 && bytes.Equal(encoded[0:4], []byte("RIFF")) && bytes.Equal(encoded[8:12], []byte("WEBP")) {
		return "image/webp"
	}
	return "image/png"
}
