// Package storage defines the data-file abstraction the reminder store persists through.
package storage

// Provider is the interface for data file operations.
type Provider interface {
	// Read returns the raw bytes of the file at name (relative to the data root).
	Read(name string) ([]byte, error)
	// Write atomically replaces the file at name with content.
	Write(name string, content []byte) error
	// Exists reports whether name is present.
	Exists(name string) (bool, error)
	// Remove deletes the file at name.
	Remove(name string) error
	// Path returns the absolute path of name.
	Path(name string) (string, error)
}
