// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP API: JSON request decoding,
// response envelopes, and the route handlers themselves.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/metplant/mcms-go/internal/service"
	"github.com/metplant/mcms-go/internal/store"
)

// Response is the envelope every API endpoint replies with.
type Response struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Data      any               `json:"data,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func writeResponse(w http.ResponseWriter, statusCode int, resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeSuccess writes a success envelope with optional payload.
func writeSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	writeResponse(w, statusCode, Response{Success: true, Message: message, Data: data})
}

// writeError writes a failure envelope with a single message.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeResponse(w, statusCode, Response{Success: false, Message: message})
}

// writeValidationError writes a 400 with a field-keyed reason map.
func writeValidationError(w http.ResponseWriter, fields map[string]string) {
	writeResponse(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "Validation failed",
		Errors:  fields,
	})
}

// writeServerError logs the failure and replies with a generic 500. The
// underlying error never reaches the client.
func writeServerError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeError(w, http.StatusInternalServerError, "Something went wrong, please try again later")
}

// decodeJSON decodes a request body into dst with a size cap.
func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// writeServiceError translates service and store errors into API replies:
// validation maps to 400 with fields, duplicates to 400 conflicts, missing
// rows to 404, everything else to 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundMessage string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr.Fields)
	case errors.Is(err, store.ErrDuplicateSlug):
		writeError(w, http.StatusBadRequest, "An article with this slug already exists")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusBadRequest, "An account with this email already exists")
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, notFoundMessage)
	default:
		writeServerError(w, r, err)
	}
}
