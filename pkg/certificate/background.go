package certificate

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

var errNoBackground = errors.New("no background")

// decodeDataURL turns a base64 data URL into an image.
func decodeDataURL(dataURL string) (image.Image, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return nil, errNoBackground
	}
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("background is not a base64 data URL")
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("decode background: %w", err)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode background image: %w", err)
	}
	return img, nil
}
