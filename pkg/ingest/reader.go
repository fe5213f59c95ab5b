package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// maxArchiveSize bounds the decompressed size of a single archive.
const maxArchiveSize = 1 << 30

// ErrArchiveTooLarge is returned when an archive decompresses beyond maxArchiveSize.
var ErrArchiveTooLarge = errors.New("archive exceeds maximum decompressed size")

// ReadArchive returns the decompressed text of a log archive.
// Files ending in .gz are gunzipped; anything else is read as-is.
func ReadArchive(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return "", fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("decompressing %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(io.LimitReader(r, maxArchiveSize+1))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) > maxArchiveSize {
		return "", fmt.Errorf("%s: %w", path, ErrArchiveTooLarge)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: content is not valid UTF-8", path)
	}

	return string(data), nil
}
