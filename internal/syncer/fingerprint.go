package syncer

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// fingerprintChunkSize is the read buffer used while hashing, keeping
// memory flat regardless of file size.
const fingerprintChunkSize = 64 * 1024

// Fingerprint computes the MD5 digest of the file's full content,
// streamed in fixed-size chunks. On any read failure the file must be
// treated as unobservable for this cycle; the caller excludes it from
// the snapshot.
func Fingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	h := md5.New()
	buf := make([]byte, fingerprintChunkSize)
	if _, err := io.CopyBuffer(h, file, buf); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
