package blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FSStore keeps each blob as a file under root with a JSON ".meta" sidecar.
type FSStore struct {
	root string
}

type metaFile struct {
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewFilesystem(root string) (*FSStore, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) pathFor(key string) (string, string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	p := filepath.Join(s.root, filepath.FromSlash(k))
	return p, p + ".meta", nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return Info{}, ErrExists
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Info{}, err
	}

	now := time.Now().UTC()
	buf, err := json.Marshal(metaFile{ContentType: contentType, Size: size, CreatedAt: now})
	if err != nil {
		return Info{}, err
	}
	if err := os.WriteFile(metaPath, buf, 0o644); err != nil {
		return Info{}, err
	}
	return Info{Key: key, Size: size, ContentType: contentType, LastModified: now}, nil
}

func (s *FSStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, ErrNotFound
	}
	if err != nil {
		return Info{}, nil, err
	}
	info := Info{Key: key}
	if buf, err := os.ReadFile(metaPath); err == nil {
		var mf metaFile
		if json.Unmarshal(buf, &mf) == nil {
			info.Size, info.ContentType, info.LastModified = mf.Size, mf.ContentType, mf.CreatedAt
		}
	}
	return info, f, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	_ = os.Remove(metaPath)
	return nil
}
