// Package sandbox derives the per-mutant sandbox file name a Run plan
// tells the external test runner to write its mutated source into.
package sandbox

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/minio/highwayhash"

	"github.com/mutaplan/mutaplan/pkg/plan"
)

// hashKey is a fixed 32-byte HighwayHash key. It only needs to be stable
// across a single process's lifetime so sandbox names don't collide; it
// is not a security boundary.
var hashKey = []byte("MUTAPLANSANDBOXKEY0123456789ABCD")

// HashingSandbox derives a stable, collision-resistant sandbox file name
// for each source file, the way a content-addressed cache would key its
// entries, using HighwayHash rather than inventing a hashing scheme.
type HashingSandbox struct{}

// NewHashingSandbox constructs a HashingSandbox.
func NewHashingSandbox() *HashingSandbox {
	return &HashingSandbox{}
}

// SandboxFileFor returns "<basename>.<hash8>.<ext>" for fileName, where
// hash8 is the first 8 hex characters of HighwayHash64(fileName).
func (s *HashingSandbox) SandboxFileFor(fileName string) string {
	dir := filepath.Dir(fileName)
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(filepath.Base(fileName), ext)

	hash, err := highwayhash.New64(hashKey)
	if err != nil {
		// hashKey is a fixed 32 bytes; New64 only errors on key length.
		panic(err)
	}
	_, _ = hash.Write([]byte(fileName))
	sum := hash.Sum(nil)

	digest := hex.EncodeToString(sum)[:8]

	name := base + "." + digest + ext
	if dir == "." {
		return name
	}
	return filepath.Join(dir, name)
}

var _ plan.Sandbox = (*HashingSandbox)(nil)
