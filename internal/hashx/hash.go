// Package hashx computes the content digests used by the sync engine: the
// document content hash that detects no-op re-syncs, and file checksums for
// attachment transfers.
package hashx

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
)

// Sum hashes the given fields in order, separated by a field marker so that
// ("ab","c") and ("a","bc") produce different digests. Returns lower-case hex.
func Sum(fields ...string) string {
	h := sha256.New()
	for _, f := range fields {
		io.WriteString(h, strconv.Itoa(len(f)))
		io.WriteString(h, ":")
		io.WriteString(h, f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SumReader hashes a stream, returning the lower-case hex digest and the
// number of bytes read. Used for attachment checksums.
func SumReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Equal compares two hex digests case-insensitively.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
