// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package documents stores member uploads and enforces who may read them.
//
// The MIME type is detected from file content, never from the client's
// Content-Type or file extension. Access by visibility:
//
//	public   anyone
//	members  any authenticated member
//	private  the owner and admins
package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tomtom215/memberhub/internal/auth"
	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
)

const (
	// sniffLen matches the amount of data mimetype inspects by default.
	sniffLen = 3072

	maxFilenameBytes = 255
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrForbidden         = errors.New("not allowed to access this document")
	ErrTooLarge          = errors.New("document exceeds the upload size limit")
	ErrTypeNotAllowed    = errors.New("document type is not allowed")
	ErrEmpty             = errors.New("document is empty")
	ErrInvalidVisibility = errors.New("invalid visibility")
)

// Collection is the document metadata collection.
type Collection = store.Collection[models.DocumentFile, *models.DocumentFile]

// NewCollection declares document metadata indexed by owner and checksum.
func NewCollection(s *store.Store) *Collection {
	return store.NewCollection[models.DocumentFile](s, "documents",
		store.Index[models.DocumentFile]{
			Name: "owner",
			Key:  func(d *models.DocumentFile) string { return d.OwnerID },
		},
		store.Index[models.DocumentFile]{
			Name: "sha256",
			Key:  func(d *models.DocumentFile) string { return d.SHA256 },
		},
	)
}

// UploadInput describes one upload.
type UploadInput struct {
	Filename    string
	Visibility  string
	Description string
	Content     io.Reader
}

// Service manages documents.
type Service struct {
	docs     *Collection
	storage  *diskStorage
	maxSize  int64
	allowed  []string
	now      func() time.Time
	onChange []func()
}

// NewService creates the document service and its upload directory.
func NewService(docs *Collection, cfg config.UploadsConfig) (*Service, error) {
	storage, err := newDiskStorage(cfg.Dir)
	if err != nil {
		return nil, err
	}
	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &Service{
		docs:    docs,
		storage: storage,
		maxSize: maxSize,
		allowed: cfg.AllowedTypes,
		now:     time.Now,
	}, nil
}

// MaxSize returns the upload limit in bytes.
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// OnChange registers fn to run after every write.
func (s *Service) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

func (s *Service) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}

// Upload detects the content type, stores the file and records its metadata.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (*models.DocumentFile, error) {
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityMembers
	}
	if !models.IsValidVisibility(visibility) {
		return nil, ErrInvalidVisibility
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		metrics.RecordUpload("error", 0)
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		metrics.RecordUpload("type_rejected", 0)
		return nil, ErrEmpty
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !s.typeAllowed(mtype) {
		metrics.RecordUpload("type_rejected", 0)
		logging.Ctx(ctx).Warn().Str("mime_type", mtype.String()).Msg("Upload type rejected")
		return nil, fmt.Errorf("%w: %s", ErrTypeNotAllowed, baseType(mtype.String()))
	}

	tmp, size, sum, err := s.storage.write(io.MultiReader(bytes.NewReader(head), in.Content), s.maxSize)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			metrics.RecordUpload("too_large", 0)
		} else {
			metrics.RecordUpload("error", 0)
		}
		return nil, err
	}

	doc := &models.DocumentFile{
		Base:        models.NewBase(s.now()),
		OwnerID:     ownerID,
		Filename:    cleanFilename(in.Filename, mtype.Extension()),
		MIMEType:    baseType(mtype.String()),
		Extension:   mtype.Extension(),
		Size:        size,
		SHA256:      sum,
		Visibility:  visibility,
		Description: strings.TrimSpace(in.Description),
	}
	doc.StoredName = doc.ID + doc.Extension

	if err := s.storage.commit(tmp, doc.StoredName); err != nil {
		s.storage.discard(tmp)
		metrics.RecordUpload("error", 0)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.docs.Insert(ctx, doc); err != nil {
		_ = s.storage.remove(doc.StoredName)
		metrics.RecordUpload("error", 0)
		return nil, fmt.Errorf("insert document: %w", err)
	}

	metrics.RecordUpload("accepted", size)
	logging.Ctx(ctx).Info().
		Str("document_id", doc.ID).
		Str("mime_type", doc.MIMEType).
		Int64("size", size).
		Msg("Document uploaded")
	s.changed()
	return doc, nil
}

func (s *Service) typeAllowed(mtype *mimetype.MIME) bool {
	for _, allowed := range s.allowed {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}

func baseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		return strings.TrimSpace(mime[:i])
	}
	return mime
}

// cleanFilename keeps the base name of a client-supplied path.
func cleanFilename(name, ext string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == "/" {
		return "upload" + ext
	}
	if len(name) > maxFilenameBytes {
		// Cut on a rune boundary so the stored name stays valid UTF-8.
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}

// CanRead reports whether subject (nil for anonymous) may read doc.
func CanRead(subject *auth.Subject, doc *models.DocumentFile) bool {
	switch doc.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityMembers:
		return subject != nil
	default:
		return subject != nil && (subject.ID == doc.OwnerID || subject.IsAdmin())
	}
}

func canModify(subject *auth.Subject, doc *models.DocumentFile) bool {
	return subject != nil && (subject.ID == doc.OwnerID || subject.IsAdmin())
}

// Get returns document metadata if subject may read it. Private documents
// of other members are reported as not found.
func (s *Service) Get(ctx context.Context, id string, subject *auth.Subject) (*models.DocumentFile, error) {
	doc, err := s.docs.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !CanRead(subject, doc) {
		if doc.Visibility == models.VisibilityPrivate {
			return nil, ErrNotFound
		}
		return nil, ErrForbidden
	}
	return doc, nil
}

// Open returns the metadata and an open file. The caller closes the file.
func (s *Service) Open(ctx context.Context, id string, subject *auth.Subject) (*models.DocumentFile, *os.File, error) {
	doc, err := s.Get(ctx, id, subject)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.storage.open(doc.StoredName)
	if errors.Is(err, os.ErrNotExist) {
		logging.Ctx(ctx).Error().Str("document_id", id).Msg("Document file missing from storage")
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return doc, f, nil
}

// ListFilter narrows List results.
type ListFilter struct {
	OwnerID string
	Query   string
}

// List returns documents subject may read, newest first.
func (s *Service) List(ctx context.Context, subject *auth.Subject, filter ListFilter, opts store.ListOptions) ([]*models.DocumentFile, int, error) {
	q := strings.ToLower(strings.TrimSpace(filter.Query))
	return s.docs.List(ctx, func(d *models.DocumentFile) bool {
		if filter.OwnerID != "" && d.OwnerID != filter.OwnerID {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(d.Filename+" "+d.Description), q) {
			return false
		}
		return CanRead(subject, d)
	}, opts)
}

// UpdateMetadata changes visibility and description. Owner or admin only.
func (s *Service) UpdateMetadata(ctx context.Context, id string, subject *auth.Subject, visibility, description string) (*models.DocumentFile, error) {
	if visibility != "" && !models.IsValidVisibility(visibility) {
		return nil, ErrInvalidVisibility
	}
	now := s.now()
	doc, err := s.docs.Modify(ctx, id, func(d *models.DocumentFile) error {
		if !canModify(subject, d) {
			return ErrForbidden
		}
		if visibility != "" {
			d.Visibility = visibility
		}
		d.Description = strings.TrimSpace(description)
		d.Touch(now)
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.changed()
	return doc, nil
}

// Delete removes a document and its file. Owner or admin only.
func (s *Service) Delete(ctx context.Context, id string, subject *auth.Subject) error {
	doc, err := s.docs.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !canModify(subject, doc) {
		if !CanRead(subject, doc) {
			return ErrNotFound
		}
		return ErrForbidden
	}

	if err := s.docs.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err := s.storage.remove(doc.StoredName); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("document_id", id).Msg("Failed to remove document file")
	}
	logging.Ctx(ctx).Info().Str("document_id", id).Msg("Document deleted")
	s.changed()
	return nil
}

// Count returns the number of stored documents.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.docs.Count(ctx, nil)
}
