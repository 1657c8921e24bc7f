package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Artifact describes a saved export.
type Artifact struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// ArtifactStore saves exported files.
type ArtifactStore interface {
	Put(name string, r io.Reader) (Artifact, error)
}

// LocalStore writes artifacts under Root.
type LocalStore struct {
	Root string
}

func (s *LocalStore) Put(name string, r io.Reader) (Artifact, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Artifact{}, fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return Artifact{}, err
	}
	full := filepath.Join(s.Root, name)
	f, err := os.Create(full)
	if err != nil {
		return Artifact{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Name:   name,
		Path:   full,
		Size:   n,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}
