package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document is the indexed form of an uploaded file.
type Document struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"` // storage key, documents/<userId>/<prefix>-<name>
	SourceURI   string    `json:"source_uri"`  // s3://bucket/key
	PublicURL   string    `json:"public_url,omitempty"`
	Owner       string    `json:"owner"`
	FileName    string    `json:"file_name"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Attributes returns the string-valued attributes a search hit carries
// alongside its id and uri.
func (d Document) Attributes() map[string]string {
	attrs := map[string]string{}
	for k, v := range map[string]string{
		"owner":        d.Owner,
		"file_name":    d.FileName,
		"public_url":   d.PublicURL,
		"content_type": d.ContentType,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	return attrs
}

// GenerateDocumentID creates a deterministic index ID from a storage key.
// The ID is a SHA-256 hash (first 16 chars) of the key.
func GenerateDocumentID(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])[:16]
}

// SearchHit is one result item returned by the search provider.
type SearchHit struct {
	DocumentID  string
	DocumentURI string
	Excerpt     string
	Title       string
	Attributes  map[string]string
}

// StoredObject describes one object in the documents bucket.
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// DocumentInfo is a listing entry returned to the owner of a document.
type DocumentInfo struct {
	ID           string  `json:"id"`
	S3Key        string  `json:"s3Key"`
	Name         string  `json:"name"`
	StoredName   string  `json:"storedName"`
	Size         int64   `json:"size"`
	SizeReadable string  `json:"sizeReadable"`
	LastModified *string `json:"lastModified"`
	SourceURI    string  `json:"sourceUri"`
	Status       string  `json:"status"`
}
