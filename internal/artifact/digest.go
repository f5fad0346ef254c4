package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"pricing-pipeline/pkg/models"
)

// FileDigest returns the "sha256:<hex>" digest of a file's content.
func FileDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Describe computes per-file entries and the artifact digest over all files.
// The artifact digest does not depend on file order.
func Describe(files []FileContent) (string, []models.ArtifactFile) {
	entries := make([]models.ArtifactFile, 0, len(files))
	for _, f := range files {
		entries = append(entries, models.ArtifactFile{
			Name:   f.Name,
			Size:   int64(len(f.Data)),
			Digest: FileDigest(f.Data),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(e.Name))
		h.Write([]byte{0})
		h.Write([]byte(e.Digest))
		h.Write([]byte{'\n'})
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), entries
}
