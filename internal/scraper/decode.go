package scraper

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeBody undoes the Content-Encoding the server applied to raw.
// The transport leaves bodies compressed because Accept-Encoding is set by hand.
func decodeBody(raw []byte, contentEncoding string) ([]byte, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	var r io.Reader = bytes.NewReader(raw)
	encodings := strings.Split(contentEncoding, ",")

	// Encodings are listed in the order they were applied
	for i := len(encodings) - 1; i >= 0; i-- {
		enc := strings.ToLower(strings.TrimSpace(encodings[i]))

		switch enc {
		case "", "identity":
		case "gzip", "x-gzip":
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, fmt.Errorf("opening gzip body: %w", err)
			}
			defer zr.Close()
			r = zr
		case "deflate":
			zr, err := zlib.NewReader(r)
			if err != nil {
				return nil, fmt.Errorf("opening deflate body: %w", err)
			}
			defer zr.Close()
			r = zr
		case "br":
			r = brotli.NewReader(r)
		case "zstd":
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, fmt.Errorf("opening zstd body: %w", err)
			}
			defer zr.Close()
			r = zr
		default:
			return nil, fmt.Errorf("unsupported content encoding: %s", enc)
		}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	return body, nil
}
