package models

// StorageCleanup is a request to delete objects that a database write has
// superseded. It travels through the cleanup queue as JSON.
type StorageCleanup struct {
	URLs      []string `json:"urls"`      // Public URLs of the objects to delete.
	Timestamp int64    `json:"timestamp"` // Unix time (seconds) at which the write committed.
	Reason    string   `json:"reason"`    // Operation that superseded the objects, e.g. "update" or "delete".
}
