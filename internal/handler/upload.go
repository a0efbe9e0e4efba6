// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metplant/mcms-go/internal/service"
)

// UploadHandler serves the image upload endpoints.
type UploadHandler struct {
	uploads *service.Uploads
}

// NewUploadHandler creates the upload handler.
func NewUploadHandler(uploads *service.Uploads) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// UploadImage handles POST /api/upload/single with a single "image" part.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided, use the \"image\" form field")
		return
	}
	defer func() { _ = file.Close() }()

	saved, err := h.uploads.SaveImage(file, header)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeSuccess(w, http.StatusCreated, "Image uploaded successfully", map[string]any{"image": saved})
}

// UploadImages handles POST /api/upload/multiple with up to MaxUploadFiles
// "images" parts. The request fails as a whole if any file is rejected;
// files saved before the failure are removed again.
func (h *UploadHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(service.MaxUploadFiles * service.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	if r.MultipartForm == nil {
		writeError(w, http.StatusBadRequest, "No image files provided, use the \"images\" form field")
		return
	}
	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "No image files provided, use the \"images\" form field")
		return
	}
	if len(headers) > service.MaxUploadFiles {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Too many files, at most %d per request", service.MaxUploadFiles))
		return
	}

	saved := make([]service.UploadedImage, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.discard(saved)
			writeError(w, http.StatusBadRequest, "Could not read uploaded file")
			return
		}

		img, err := h.uploads.SaveImage(file, header)
		_ = file.Close()
		if err != nil {
			h.discard(saved)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved = append(saved, img)
	}

	writeSuccess(w, http.StatusCreated,
		fmt.Sprintf("%d images uploaded successfully", len(saved)),
		map[string]any{"images": saved})
}

// discard removes files already written by a partially failed multi-upload.
func (h *UploadHandler) discard(saved []service.UploadedImage) {
	for _, img := range saved {
		_ = h.uploads.Delete(img.Filename)
	}
}

// DeleteImage handles DELETE /api/upload/{filename}.
func (h *UploadHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := h.uploads.Delete(filename); err != nil {
		if errors.Is(err, service.ErrUploadNotFound) {
			writeError(w, http.StatusNotFound, "Image not found")
			return
		}
		writeServerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Image deleted successfully", nil)
}

// ListImages handles GET /api/upload/list.
func (h *UploadHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.uploads.List()
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"images": images})
}
