package utils

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// MaxBlobBytes caps a single decoded upload.
const MaxBlobBytes = 5 * 1024 * 1024

var (
	ErrEmptyBlob    = errors.New("file is empty")
	ErrBlobTooLarge = errors.New("file exceeds 5MB")
	ErrBadBlob      = errors.New("file is not valid base64")
	ErrBlobType     = errors.New("only JPEG, PNG, WEBP or PDF files are accepted")
)

var blobExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// DecodeBlob decodes a base64 payload, with or without a "data:<mime>;base64,"
// prefix, and sniffs its content type. It returns the bytes, the content type
// and the file extension to use in the object key.
func DecodeBlob(encoded string) ([]byte, string, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, "", "", ErrEmptyBlob
	}
	if strings.HasPrefix(encoded, "data:") {
		idx := strings.Index(encoded, ",")
		if idx < 0 {
			return nil, "", "", ErrBadBlob
		}
		encoded = encoded[idx+1:]
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxBlobBytes+3 {
		return nil, "", "", ErrBlobTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, "", "", ErrBadBlob
		}
	}
	if len(data) == 0 {
		return nil, "", "", ErrEmptyBlob
	}
	if len(data) > MaxBlobBytes {
		return nil, "", "", ErrBlobTooLarge
	}

	contentType := http.DetectContentType(data)
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := blobExtensions[contentType]
	if !ok {
		return nil, "", "", ErrBlobType
	}
	return data, contentType, ext, nil
}
