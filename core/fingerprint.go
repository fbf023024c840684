package core

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/go-crypt/x/blake2b"
)

// FingerprintSize is the digest length in bytes (128 bits).
const FingerprintSize = 16

// Fingerprint identifies a file by its content. It is the lowercase hex
// encoding of a 128-bit BLAKE2b digest over the file's raw bytes.
type Fingerprint string

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return string(f)
}

// Valid reports whether f has the shape of a fingerprint.
func (f Fingerprint) Valid() bool {
	if len(f) != FingerprintSize*2 {
		return false
	}
	_, err := hex.DecodeString(string(f))
	return err == nil
}

// HashBytes computes the fingerprint of an in-memory buffer.
func HashBytes(data []byte) Fingerprint {
	h, _ := blake2b.New(FingerprintSize, nil)
	h.Write(data)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// HashFile computes the fingerprint of the file at path.
// The whole file is read; no sampling is performed.
func HashFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New(FingerprintSize, nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}
