// Package fingerprint computes the short content digest used as the work
// directory cache key for a target binary.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/sha3"
)

const (
	// Size is the digest length in bytes (rendered as 2*Size hex characters).
	Size = 4
	// ChunkSize is the read size used when hashing a file.
	ChunkSize = 8192
)

// Digest is a truncated SHAKE-256 digest of a file's contents.
type Digest [Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Parse decodes a hex encoded digest.
func Parse(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("invalid fingerprint %q: %w", s, err)
	}
	if len(b) != Size {
		return d, fmt.Errorf("invalid fingerprint %q: want %d hex characters", s, 2*Size)
	}
	copy(d[:], b)
	return d, nil
}

// File returns the digest of the file at path.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer f.Close()
	return Sum(f, ChunkSize)
}

// Sum reads r to EOF in chunks of at most chunkSize bytes and returns the
// digest of everything read. The result does not depend on chunkSize.
func Sum(r io.Reader, chunkSize int) (Digest, error) {
	var d Digest
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	h := sha3.NewShake256()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return d, err
		}
	}
	if _, err := h.Read(d[:]); err != nil {
		return d, err
	}
	return d, nil
}
