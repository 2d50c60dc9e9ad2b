package ports

// FileSystem abstracts access to input streams, rendered sheets and reports.
type FileSystem interface {
	// ReadFile reads a whole stream or file into memory.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces path with data. Readers never observe a
	// partially written file.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory.
	Remove(path string) error
}
