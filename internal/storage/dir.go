package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStore serves files from a mounted directory (the SD card mount point).
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir. It checks that dir is a
// readable directory; a missing card is reported as an error.
func NewDirStore(dir string) (*DirStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("card failed, or not present: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("card failed, or not present: %s is not a directory", dir)
	}
	return &DirStore{root: dir}, nil
}

// Root returns the mount directory.
func (d *DirStore) Root() string {
	return d.root
}

func (d *DirStore) path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(name, "/")))
}

// Exists reports whether name is a regular file.
func (d *DirStore) Exists(name string) bool {
	info, err := os.Stat(d.path(name))
	return err == nil && info.Mode().IsRegular()
}

// Open opens name for reading.
func (d *DirStore) Open(name string) (*File, error) {
	f, err := os.Open(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	return NewFile(f, f, info.Size()), nil
}

// SaveImage copies the file at src into the store as name, replacing any
// existing copy. Used to put the running firmware image on the card.
func (d *DirStore) SaveImage(src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer in.Close()

	dst := d.path(name)
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy image: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
