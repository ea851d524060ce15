package models

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var ErrNotAnImage = errors.New("payload is not a supported image")

var formatMIMETypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ImagePayload is an encoded image together with its MIME type.
type ImagePayload struct {
	MIMEType string
	Data     []byte
}

// NewImagePayload sniffs the encoding of data and rejects anything that is not
// a jpeg, png, gif or webp image.
func NewImagePayload(data []byte) (*ImagePayload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrNotAnImage)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	mimeType, ok := formatMIMETypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %s", ErrNotAnImage, format)
	}
	return &ImagePayload{MIMEType: mimeType, Data: data}, nil
}
