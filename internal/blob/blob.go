// Package blob stores uploaded file payloads on disk and exposes them under
// a static URL prefix.
package blob

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/shortid"
)

const urlPrefix = "/uploads"

type Store interface {
	Save(filename, dataURL string) (string, error)
}

type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Save decodes a base64 data URL ("data:<mime>;base64,<payload>" or a bare
// base64 string) and writes it under a generated, collision-resistant
// filename. It returns the URL the payload is retrievable at.
func (fs *FileStore) Save(filename, dataURL string) (string, error) {
	payload := dataURL
	if idx := strings.LastIndex(dataURL, ";base64,"); idx != -1 {
		payload = dataURL[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	sid, err := shortid.Generate()
	if err != nil {
		return "", fmt.Errorf("generate file id: %w", err)
	}

	name := sid + "_" + sanitizeFilename(filename)
	if err := os.WriteFile(filepath.Join(fs.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return urlPrefix + "/" + name, nil
}

func sanitizeFilename(filename string) string {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "file"
	}

	return strings.ReplaceAll(name, " ", "_")
}
