// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

package api

import (
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/documents"
	"github.com/tomtom215/memberhub/internal/logging"
)

// multipartOverhead is allowed on top of the file size limit for form
// fields and part headers.
const multipartOverhead = 1 << 20

// documentUpdateRequest is the body of PUT /documents/{id}.
type documentUpdateRequest struct {
	Visibility  string `json:"visibility" validate:"omitempty,oneof=private members public"`
	Description string `json:"description" validate:"max=1000"`
}

// ListDocuments returns documents visible to the caller.
//
// Query parameters: q, owner (member ID or "me"), limit, offset.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	subject := auth.SubjectFromContext(r.Context())
	filter := documents.ListFilter{
		Query:   r.URL.Query().Get("q"),
		OwnerID: r.URL.Query().Get("owner"),
	}
	if filter.OwnerID == "me" {
		if subject == nil {
			respondError(w, http.StatusUnauthorized, ErrCodeAuthentication, "Authentication required", nil)
			return
		}
		filter.OwnerID = subject.ID
	}

	opts := h.listOptions(r)
	docs, total, err := h.documents.List(r.Context(), subject, filter, opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondList(w, docs, total, opts, start)
}

// GetDocument returns document metadata.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	doc, err := h.documents.Get(r.Context(), chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, doc, start)
}

// DownloadDocument streams the stored file as an attachment. Range and
// conditional requests are handled by http.ServeContent.
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, f, err := h.documents.Open(r.Context(), chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Ctx(r.Context()).Warn().Err(cerr).Msg("Failed to close document file")
		}
	}()

	w.Header().Set("Content-Type", doc.MIMEType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, no-cache")
	http.ServeContent(w, r, doc.Filename, doc.UpdatedAt, f)
}

// UploadDocument accepts a multipart form with a "file" part and optional
// "visibility" and "description" fields.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.documents.MaxSize()+multipartOverhead)

	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, documents.ErrTooLarge.Error(), nil)
			return
		}
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Expected a multipart form upload", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Missing file field", nil)
		return
	}
	defer file.Close()

	subject := auth.SubjectFromContext(r.Context())
	doc, err := h.documents.Upload(r.Context(), subject.ID, documents.UploadInput{
		Filename:    header.Filename,
		Visibility:  r.FormValue("visibility"),
		Description: r.FormValue("description"),
		Content:     file,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("document_id", doc.ID).
		Str("owner_id", subject.ID).
		Str("mime_type", doc.MIMEType).
		Int64("size", doc.Size).
		Msg("Document uploaded")
	respondData(w, http.StatusCreated, doc, start)
}

// UpdateDocument changes visibility or description. Owner or admin only.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req documentUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.documents.UpdateMetadata(r.Context(), chi.URLParam(r, "id"),
		auth.SubjectFromContext(r.Context()), req.Visibility, req.Description)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, doc, start)
}

// DeleteDocument removes the file and its metadata. Owner or admin only.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := h.documents.Delete(r.Context(), chi.URLParam(r, "id"), auth.SubjectFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, map[string]bool{"deleted": true}, start)
}
