// Package documents manages the files a user uploads into their folder of
// the documents bucket and keeps the search index informed of changes.
package documents

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mfenderov/ragchat/internal/access"
	"github.com/mfenderov/ragchat/internal/apierr"
	"github.com/mfenderov/ragchat/internal/events"
	"github.com/mfenderov/ragchat/internal/reference"
	"github.com/mfenderov/ragchat/pkg/models"
)

// Store is the documents bucket.
type Store interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	ListObjects(ctx context.Context, prefix string) ([]models.StoredObject, error)
	DeleteObject(ctx context.Context, key string) error
}

// Syncer applies bucket changes to the search index.
type Syncer interface {
	Sync(ctx context.Context, ev events.DocumentChanged) (events.SyncCompleteEvent, error)
}

// UploadRequest is the body of an upload.
type UploadRequest struct {
	FileName    string `json:"fileName"`
	FileContent string `json:"fileContent"` // base64
	FileType    string `json:"fileType"`
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	Message   string  `json:"message"`
	FileID    string  `json:"fileId"`
	FileName  string  `json:"fileName"`
	SourceURI string  `json:"sourceUri"`
	SyncID    *string `json:"syncId"`
}

// DeleteRequest is the body of a deletion. FileKey and FileID are
// alternative names for the storage key.
type DeleteRequest struct {
	FileKey  string `json:"fileKey"`
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// DeleteResult is returned after a successful deletion.
type DeleteResult struct {
	Message string  `json:"message"`
	FileID  string  `json:"fileId"`
	SyncID  *string `json:"syncId"`
}

// Service uploads, lists and deletes a caller's documents.
type Service struct {
	store   Store
	syncer  Syncer
	locator reference.Locator
	now     func() time.Time
}

// New creates a Service. syncer may be nil, in which case the index is
// not updated and sync ids are null.
func New(store Store, syncer Syncer, locator reference.Locator) *Service {
	return &Service{
		store:   store,
		syncer:  syncer,
		locator: locator,
		now:     time.Now,
	}
}

// Upload stores a file in the caller's folder.
func (s *Service) Upload(ctx context.Context, id models.Identity, req UploadRequest) (*UploadResult, error) {
	scope, err := scopeOf(id)
	if err != nil {
		return nil, err
	}
	if req.FileName == "" || req.FileContent == "" || req.FileType == "" {
		return nil, apierr.New(apierr.Validation, "Missing required fields")
	}

	data, err := base64.StdEncoding.DecodeString(req.FileContent)
	if err != nil {
		return nil, apierr.Wrap(apierr.Validation, "fileContent must be base64 encoded", err)
	}

	key := scope.String() + shortID() + "-" + SanitizeFileName(req.FileName)
	if err := s.store.PutObject(ctx, key, data, req.FileType); err != nil {
		return nil, err
	}

	slog.Info("document uploaded", "key", key, "size", len(data), "content_type", req.FileType)

	return &UploadResult{
		Message:   "File uploaded successfully",
		FileID:    key,
		FileName:  req.FileName,
		SourceURI: s.locator.URI(key),
		SyncID:    s.sync(ctx, events.Uploaded, key, id.UserID, req.FileName),
	}, nil
}

// List returns the caller's documents, newest first.
func (s *Service) List(ctx context.Context, id models.Identity) ([]models.DocumentInfo, error) {
	scope, err := scopeOf(id)
	if err != nil {
		return nil, err
	}

	objects, err := s.store.ListObjects(ctx, scope.String())
	if err != nil {
		return nil, err
	}

	docs := make([]models.DocumentInfo, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		stored := reference.StoredName(obj.Key)

		var lastModified *string
		if !obj.LastModified.IsZero() {
			v := obj.LastModified.UTC().Format(time.RFC3339)
			lastModified = &v
		}

		docs = append(docs, models.DocumentInfo{
			ID:           obj.Key,
			S3Key:        obj.Key,
			Name:         reference.DisplayName(stored),
			StoredName:   stored,
			Size:         obj.Size,
			SizeReadable: FormatSize(obj.Size),
			LastModified: lastModified,
			SourceURI:    s.locator.URI(obj.Key),
			Status:       "completed",
		})
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return deref(docs[i].LastModified) > deref(docs[j].LastModified)
	})
	return docs, nil
}

// Delete removes a document from the caller's folder.
func (s *Service) Delete(ctx context.Context, id models.Identity, req DeleteRequest) (*DeleteResult, error) {
	scope, err := scopeOf(id)
	if err != nil {
		return nil, err
	}

	ref := req.FileKey
	if ref == "" {
		ref = req.FileID
	}
	if ref == "" {
		return nil, apierr.New(apierr.Validation, "fileKey is required")
	}
	if !scope.Owns(s.locator, ref) {
		return nil, apierr.New(apierr.Forbidden, "You are not allowed to delete this file")
	}

	key := s.locator.Key(ref)
	if err := s.store.DeleteObject(ctx, key); err != nil {
		return nil, err
	}

	name := req.FileName
	if name == "" {
		name = key
	}

	slog.Info("document deleted", "key", key)

	return &DeleteResult{
		Message: "Deleted " + name,
		FileID:  key,
		SyncID:  s.sync(ctx, events.Deleted, key, id.UserID, name),
	}, nil
}

// sync never fails the calling operation; a failed sync yields a nil id.
func (s *Service) sync(ctx context.Context, op events.Operation, key, owner, name string) *string {
	if s.syncer == nil {
		return nil
	}
	done, err := s.syncer.Sync(ctx, events.DocumentChanged{
		Operation: op,
		Key:       key,
		Owner:     owner,
		FileName:  name,
		Timestamp: s.now(),
	})
	if err != nil {
		slog.Warn("index sync failed", "operation", op, "key", key, "error", err)
		return nil
	}
	return &done.SyncID
}

func scopeOf(id models.Identity) (access.Scope, error) {
	scope := access.ScopeFor(id)
	if scope == "" {
		return "", apierr.New(apierr.Authorization, "Authorization token missing")
	}
	return scope, nil
}

// SanitizeFileName keeps letters, digits and ".-_", replacing every other
// character with "_". An empty result becomes "file_<8 hex>".
func SanitizeFileName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "file_" + shortID()
	}
	return sb.String()
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatSize renders n bytes with two decimals in the largest unit below
// 1024, e.g. "1.50 KB".
func FormatSize(n int64) string {
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// shortID returns eight random hex characters.
func shortID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
