package storage

import (
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// the only image types we accept for upload.
var mimeExtensions = map[string]string{
	"image/png":  "png",
	"image/jpg":  "jpg",
	"image/jpeg": "jpeg",
}

var ErrUnsupportedType = errors.New("unsupported image type")

// FileStore keeps uploaded images on the local filesystem under a single
// root directory. Paths handed out are relative to the process working
// directory so they can double as URL paths.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	err := os.MkdirAll(root, 0o755)

	if err != nil {
		return nil, err
	}

	return &FileStore{root: root}, nil
}

func (s *FileStore) Save(header *multipart.FileHeader) (string, error) {
	ext, ok := mimeExtensions[header.Header.Get("Content-Type")]

	if !ok {
		return "", ErrUnsupportedType
	}

	src, err := header.Open()

	if err != nil {
		return "", err
	}

	defer src.Close()

	// generated name per upload, so paths never collide
	name := uuid.NewString() + "." + ext
	path := filepath.Join(s.root, name)

	dst, err := os.Create(path)

	if err != nil {
		return "", err
	}

	_, err = io.Copy(dst, src)

	closeErr := dst.Close()

	if err != nil {
		_ = os.Remove(path)
		return "", err
	}

	if closeErr != nil {
		_ = os.Remove(path)
		return "", closeErr
	}

	return path, nil
}

// Delete removes a stored image. It refuses paths outside the store root so
// a corrupted record can never unlink arbitrary files.
func (s *FileStore) Delete(path string) error {
	cleaned := filepath.Clean(path)

	if !strings.HasPrefix(cleaned, filepath.Clean(s.root)+string(filepath.Separator)) {
		return errors.New("path escapes upload root")
	}

	return os.Remove(cleaned)
}

func (s *FileStore) Root() string {
	return s.root
}
