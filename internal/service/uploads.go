// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Upload limits
const (
	MaxUploadSize    = 5 * 1024 * 1024 // 5MB
	MaxUploadFiles   = 10              // per multi-upload request
	UploadMaxAge     = 30 * 24 * time.Hour
	uploadsSubdir    = "images"
	uploadNamePrefix = "image-"
)

// ErrUploadNotFound is returned when the named upload does not exist.
var ErrUploadNotFound = errors.New("upload not found")

// allowedExtensions maps acceptable image extensions to their MIME types.
var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// UploadedImage describes a stored image file.
type UploadedImage struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Uploads stores article images on the local filesystem under a single
// images directory. Files are renamed to image-<uuid>.<ext> so original
// filenames never reach the disk or the URL space.
type Uploads struct {
	dir string
}

// NewUploads creates the upload service and its images directory.
func NewUploads(uploadsDir string) (*Uploads, error) {
	dir := filepath.Join(uploadsDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &Uploads{dir: dir}, nil
}

// SaveImage validates and stores one uploaded image.
func (s *Uploads) SaveImage(file multipart.File, header *multipart.FileHeader) (UploadedImage, error) {
	if header.Size > MaxUploadSize {
		return UploadedImage{}, fmt.Errorf("file size exceeds maximum allowed (%d bytes)", MaxUploadSize)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mimeType, ok := allowedExtensions[ext]
	if !ok {
		return UploadedImage{}, fmt.Errorf("file type %s is not allowed, only images are accepted", ext)
	}
	if declared := header.Header.Get("Content-Type"); declared != "" && declared != mimeType {
		// Browsers report image/jpeg for both .jpg and .jpeg; anything
		// else disagreeing with the extension is rejected outright.
		if !strings.HasPrefix(declared, "image/") {
			return UploadedImage{}, fmt.Errorf("content type %s is not allowed, only images are accepted", declared)
		}
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		return UploadedImage{}, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > MaxUploadSize {
		return UploadedImage{}, fmt.Errorf("file size exceeds maximum allowed (%d bytes)", MaxUploadSize)
	}

	// Decoding doubles as content validation: a renamed non-image fails here.
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return UploadedImage{}, fmt.Errorf("file is not a valid image: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	filename := uploadNamePrefix + uuid.New().String() + ext
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return UploadedImage{}, fmt.Errorf("writing upload: %w", err)
	}

	return UploadedImage{
		Filename:   filename,
		URL:        s.URL(filename),
		Size:       int64(len(data)),
		Width:      width,
		Height:     height,
		UploadedAt: time.Now(),
	}, nil
}

// Delete removes a stored image by filename.
func (s *Uploads) Delete(filename string) error {
	if !validUploadName(filename) {
		return ErrUploadNotFound
	}

	err := os.Remove(filepath.Join(s.dir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return ErrUploadNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting upload: %w", err)
	}
	return nil
}

// List returns the stored images, newest first.
func (s *Uploads) List() ([]UploadedImage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading uploads directory: %w", err)
	}

	images := make([]UploadedImage, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !validUploadName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		images = append(images, UploadedImage{
			Filename:   entry.Name(),
			URL:        s.URL(entry.Name()),
			Size:       info.Size(),
			UploadedAt: info.ModTime(),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].UploadedAt.After(images[j].UploadedAt)
	})
	return images, nil
}

// CleanupOld removes images older than maxAge and reports how many were
// deleted. Intended for the scheduled maintenance job.
func (s *Uploads) CleanupOld(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("reading uploads directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !validUploadName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// URL returns the public URL path for a stored image.
func (s *Uploads) URL(filename string) string {
	return "/uploads/" + uploadsSubdir + "/" + filename
}

// validUploadName accepts only filenames this service generates. Anything
// else, path traversal included, is treated as nonexistent.
func validUploadName(filename string) bool {
	if filename != filepath.Base(filename) {
		return false
	}
	if !strings.HasPrefix(filename, uploadNamePrefix) {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}
