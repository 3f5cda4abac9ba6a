package utils

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDecodeBlob(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pngHeader)

	t.Run("plain base64", func(t *testing.T) {
		data, ct, ext, err := DecodeBlob(raw)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)
		assert.Equal(t, "image/png", ct)
		assert.Equal(t, ".png", ext)
	})

	t.Run("data url", func(t *testing.T) {
		_, ct, _, err := DecodeBlob("data:image/png;base64," + raw)
		require.NoError(t, err)
		assert.Equal(t, "image/png", ct)
	})

	t.Run("empty", func(t *testing.T) {
		_, _, _, err := DecodeBlob("  ")
		assert.ErrorIs(t, err, ErrEmptyBlob)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, _, err := DecodeBlob("!!!not-base64!!!")
		assert.ErrorIs(t, err, ErrBadBlob)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, _, _, err := DecodeBlob(base64.StdEncoding.EncodeToString([]byte("just some text")))
		assert.ErrorIs(t, err, ErrBlobType)
	})

	t.Run("too large", func(t *testing.T) {
		big := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("a", MaxBlobBytes+10)))
		_, _, _, err := DecodeBlob(big)
		assert.ErrorIs(t, err, ErrBlobTooLarge)
	})
}
