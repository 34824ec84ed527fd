package events

import "time"

// Operation names a change to the documents bucket.
type Operation string

const (
	// Uploaded is sent after an object is written.
	Uploaded Operation = "uploaded"
	// Deleted is sent after an object is removed.
	Deleted Operation = "deleted"
)

// DocumentChanged is sent when an object under documents/ changes and the
// search index has to follow.
type DocumentChanged struct {
	Operation Operation
	Key       string    // storage key, e.g. "documents/<userId>/<prefix>-<name>"
	Owner     string    // user id owning the key
	FileName  string    // display name
	Timestamp time.Time // when the change happened
}

// SyncCompleteEvent is reported when the index has applied a change.
type SyncCompleteEvent struct {
	SyncID   string        // identifies this synchronization
	Key      string        // storage key that was synchronized
	Indexed  bool          // false when the change was a removal or the content is not indexable
	Duration time.Duration // how long the synchronization took
}
