package agent

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"castlefs/internal/protocol"
)

const defaultMimeType = "application/octet-stream"

// Storage performs the agent's filesystem operations, confined to a
// single root directory. All protocol paths are slash-separated and
// relative to that root; anything that would resolve outside it is
// rejected as a permission failure.
type Storage struct {
	root string
}

func NewStorage(root string) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage root %s is not a directory", abs)
	}
	return &Storage{root: abs}, nil
}

// Root returns the absolute directory this storage is confined to.
func (s *Storage) Root() string { return s.root }

// resolve maps a protocol path onto the local filesystem. The cleaned
// relative form is returned alongside for use in snapshots. A path
// that climbs above the root is a permission failure; an absolute path
// is clamped relative to the root.
func (s *Storage) resolve(p string) (full string, rel string, err error) {
	rel = path.Clean(p)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", "", fmt.Errorf("path %q escapes storage root: %w", p, os.ErrPermission)
	}
	rel = strings.TrimPrefix(rel, "/")
	if rel == "." {
		rel = ""
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), rel, nil
}

// ReadFile returns a text snapshot of one file.
func (s *Storage) ReadFile(p string) (*protocol.FileData, error) {
	full, rel, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	return &protocol.FileData{
		Path:         rel,
		Content:      string(content),
		LastModified: info.ModTime().UTC().Format(time.RFC3339),
	}, nil
}

// ReadBinaryFile returns a base64 snapshot of one file. Size is the
// raw byte length, which always equals the decoded length of Data.
func (s *Storage) ReadBinaryFile(p string) (*protocol.BinaryFileData, error) {
	full, rel, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, err
	}
	mimeType := mime.TypeByExtension(path.Ext(rel))
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return &protocol.BinaryFileData{
		Path:         rel,
		Data:         base64.StdEncoding.EncodeToString(raw),
		MimeType:     mimeType,
		Size:         int64(len(raw)),
		LastModified: info.ModTime().UTC().Format(time.RFC3339),
	}, nil
}

// ListDirectory returns a recursive snapshot of the tree under p.
// Listing a plain file yields a single file node.
func (s *Storage) ListDirectory(p string) (*protocol.DirectoryTree, error) {
	full, rel, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	return s.listNode(full, rel, info.IsDir())
}

func (s *Storage) listNode(full, rel string, isDir bool) (*protocol.DirectoryTree, error) {
	node := &protocol.DirectoryTree{
		Name: path.Base(rel),
		Path: rel,
		Type: protocol.EntryFile,
	}
	if rel == "" {
		node.Name = ""
	}
	if !isDir {
		return node, nil
	}

	node.Type = protocol.EntryDirectory
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}
		child, err := s.listNode(filepath.Join(full, entry.Name()), childRel, entry.IsDir())
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, *child)
	}
	return node, nil
}

// WriteFile stores content at p, creating parent directories as needed.
func (s *Storage) WriteFile(p, content string) error {
	full, _, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(content), 0o644)
}

// DeleteFile removes the file at p.
func (s *Storage) DeleteFile(p string) error {
	full, _, err := s.resolve(p)
	if err != nil {
		return err
	}
	return os.Remove(full)
}
