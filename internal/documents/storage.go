// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package documents

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// diskStorage keeps uploaded files flat in one directory under generated names.
type diskStorage struct {
	dir string
}

func newDiskStorage(dir string) (*diskStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &diskStorage{dir: dir}, nil
}

func (d *diskStorage) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid stored name %q", name)
	}
	return filepath.Join(d.dir, name), nil
}

// write streams r to a temp file, enforcing limit bytes. It returns the temp
// path, size and hex sha256. The caller commits or discards the temp file.
func (d *diskStorage) write(r io.Reader, limit int64) (tmpPath string, size int64, sum string, err error) {
	f, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	h := sha256.New()
	size, err = io.Copy(io.MultiWriter(f, h), io.LimitReader(r, limit+1))
	if err != nil {
		return "", 0, "", fmt.Errorf("write upload: %w", err)
	}
	if size > limit {
		return "", size, "", ErrTooLarge
	}
	return f.Name(), size, hex.EncodeToString(h.Sum(nil)), nil
}

func (d *diskStorage) commit(tmpPath, name string) error {
	dst, err := d.path(name)
	if err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

func (d *diskStorage) discard(tmpPath string) {
	_ = os.Remove(tmpPath)
}

func (d *diskStorage) open(name string) (*os.File, error) {
	p, err := d.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (d *diskStorage) remove(name string) error {
	p, err := d.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
