package native

import (
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// acceptEncoding is advertised when a compressed transfer is requested.
const acceptEncoding = "gzip, deflate, zstd"

// newBodyDecoder wraps r with the decoder named by the response's
// Content-Encoding. Identity and unknown codings pass through, which is
// also what curl does for codings it did not ask for.
func newBodyDecoder(r io.Reader, contentEncoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		return gzip.NewReader(r)
	case "deflate":
		return flate.NewReader(r), nil
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	default:
		return r, nil
	}
}
