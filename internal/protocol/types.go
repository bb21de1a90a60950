package protocol

// Snapshot types carried inside response payloads. These travel as the
// opaque "data" member of a response and are decoded by the caller that
// knows which operation it issued.

// FileData is a text file snapshot. LastModified is ISO-8601.
type FileData struct {
	Path         string `json:"path"`
	Content      string `json:"content"`
	LastModified string `json:"lastModified"`
}

// BinaryFileData is a binary file snapshot. Data holds the full content
// base64-encoded so it survives a text envelope; Size is the decoded
// byte length, not the length of the base64 text.
type BinaryFileData struct {
	Path         string `json:"path"`
	Data         string `json:"data"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

// EntryType distinguishes files from directories in a listing.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// DirectoryTree is one node of a recursive listing snapshot. Children
// is present only on directory nodes.
type DirectoryTree struct {
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	Type     EntryType       `json:"type"`
	Children []DirectoryTree `json:"children,omitempty"`
}
