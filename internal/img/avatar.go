package img

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

type SaveResult struct {
	Name          string
	Path          string
	Hash          string
	Width, Height int
}

// SaveAvatar crops srcPath to a centred square of at most size pixels and
// writes it as JPEG into dstDir. The file name is prefix plus a content hash
// so a new upload never collides with a cached older one.
func SaveAvatar(srcPath, dstDir, prefix string, size int) (SaveResult, error) {
	im, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return SaveResult{}, err
	}
	b := im.Bounds()
	side := min(b.Dx(), b.Dy(), size)
	out := imaging.Fill(im, side, side, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return SaveResult{}, err
	}
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return SaveResult{}, err
	}

	h := sha256.Sum256(buf.Bytes())
	sum := hex.EncodeToString(h[:])
	name := prefix + "-" + sum[:16] + ".jpg"
	dst := filepath.Join(dstDir, name)
	if err := os.WriteFile(dst, buf.Bytes(), 0644); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{Name: name, Path: dst, Hash: sum, Width: side, Height: side}, nil
}
