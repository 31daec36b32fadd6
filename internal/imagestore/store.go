package imagestore

import "errors"

// Ref points at a persisted image resource. Images are content-addressed:
// Hash is the SHA-1 of the stored bytes, Name is the storage-relative file
// name and URL is the externally visible location handed to callers.
type Ref struct {
	Hash string `json:"hash"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ErrNotFound is returned when a referenced image has no backing file in the
// active set. A second deletion of an already-tombstoned image reports this
// rather than failing loudly.
var ErrNotFound = errors.New("image not found in active store")

// Store is a content-addressed image repository split into an active set and
// a tombstone set. Once a hash enters the tombstone set it stays there: the
// same byte content is never persisted again, even from a different document.
//
// Implementations must serialize the check-then-write sequence so two
// concurrent extraction runs cannot both decide the same hash is new.
type Store interface {
	// Exists reports whether hash is present in the active set.
	Exists(hash string) (bool, error)

	// Tombstoned reports whether hash is present in the tombstone set.
	Tombstoned(hash string) (bool, error)

	// Put persists data under name, records hash in the active set and
	// returns a ref for it.
	Put(hash, name string, data []byte) (*Ref, error)

	// MoveToTombstone moves the image identified by url out of the active
	// set into the tombstone set. Returns ErrNotFound when the backing file
	// is not in the active set (including when it was already tombstoned).
	MoveToTombstone(url string) error
}
