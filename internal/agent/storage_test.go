package agent

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"castlefs/internal/protocol"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	return store
}

func TestStorage_WriteThenRead(t *testing.T) {
	store := newTestStorage(t)

	if err := store.WriteFile("docs/note.txt", "hello"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	file, err := store.ReadFile("docs/note.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if file.Path != "docs/note.txt" {
		t.Errorf("Expected path 'docs/note.txt', got %q", file.Path)
	}
	if file.Content != "hello" {
		t.Errorf("Expected content 'hello', got %q", file.Content)
	}
	if _, err := time.Parse(time.RFC3339, file.LastModified); err != nil {
		t.Errorf("LastModified %q is not RFC3339: %v", file.LastModified, err)
	}
}

func TestStorage_ReadMissingFile(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.ReadFile("nope.txt")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
	if errorCode(err) != "ENOENT" {
		t.Errorf("Expected code ENOENT, got %q", errorCode(err))
	}
}

func TestStorage_BinarySizeMatchesDecodedLength(t *testing.T) {
	store := newTestStorage(t)

	raw := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0x01, 0x02}
	if err := os.WriteFile(filepath.Join(store.Root(), "img.png"), raw, 0o644); err != nil {
		t.Fatalf("Failed to seed binary file: %v", err)
	}

	file, err := store.ReadBinaryFile("img.png")
	if err != nil {
		t.Fatalf("ReadBinaryFile failed: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(file.Data)
	if err != nil {
		t.Fatalf("Data is not valid base64: %v", err)
	}
	if int64(len(decoded)) != file.Size {
		t.Errorf("Size %d does not match decoded length %d", file.Size, len(decoded))
	}
	if string(decoded) != string(raw) {
		t.Error("Decoded content does not match original bytes")
	}
	if file.MimeType != "image/png" {
		t.Errorf("Expected mime type image/png, got %q", file.MimeType)
	}
}

func TestStorage_BinaryUnknownExtensionFallsBack(t *testing.T) {
	store := newTestStorage(t)
	if err := store.WriteFile("blob.xyzq", "data"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	file, err := store.ReadBinaryFile("blob.xyzq")
	if err != nil {
		t.Fatalf("ReadBinaryFile failed: %v", err)
	}
	if file.MimeType != defaultMimeType {
		t.Errorf("Expected %q, got %q", defaultMimeType, file.MimeType)
	}
}

func TestStorage_ListDirectoryTree(t *testing.T) {
	store := newTestStorage(t)
	store.WriteFile("a.txt", "a")
	store.WriteFile("docs/b.txt", "b")
	store.WriteFile("docs/sub/c.txt", "c")

	tree, err := store.ListDirectory("")
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}
	if tree.Type != protocol.EntryDirectory || tree.Path != "" {
		t.Errorf("Unexpected root node: %+v", tree)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("Expected 2 root children, got %d", len(tree.Children))
	}

	// ReadDir sorts, so a.txt comes before docs
	if tree.Children[0].Path != "a.txt" || tree.Children[0].Type != protocol.EntryFile {
		t.Errorf("Unexpected first child: %+v", tree.Children[0])
	}
	docs := tree.Children[1]
	if docs.Path != "docs" || docs.Type != protocol.EntryDirectory {
		t.Errorf("Unexpected docs node: %+v", docs)
	}
	if len(docs.Children) != 2 || docs.Children[1].Path != "docs/sub" {
		t.Fatalf("Unexpected docs children: %+v", docs.Children)
	}
	if docs.Children[1].Children[0].Path != "docs/sub/c.txt" {
		t.Errorf("Unexpected nested path: %+v", docs.Children[1].Children[0])
	}

	// no duplicate paths anywhere in the snapshot
	seen := make(map[string]bool)
	var walk func(node protocol.DirectoryTree)
	walk = func(node protocol.DirectoryTree) {
		if seen[node.Path] {
			t.Errorf("Duplicate path in tree: %q", node.Path)
		}
		seen[node.Path] = true
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(*tree)
}

func TestStorage_ListSubdirectory(t *testing.T) {
	store := newTestStorage(t)
	store.WriteFile("docs/b.txt", "b")

	tree, err := store.ListDirectory("docs")
	if err != nil {
		t.Fatalf("ListDirectory failed: %v", err)
	}
	if tree.Name != "docs" || tree.Path != "docs" {
		t.Errorf("Unexpected node: %+v", tree)
	}
	if len(tree.Children) != 1 || tree.Children[0].Path != "docs/b.txt" {
		t.Errorf("Unexpected children: %+v", tree.Children)
	}
}

func TestStorage_Delete(t *testing.T) {
	store := newTestStorage(t)
	store.WriteFile("a.txt", "a")

	if err := store.DeleteFile("a.txt"); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if _, err := store.ReadFile("a.txt"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected file to be gone, got %v", err)
	}
	if err := store.DeleteFile("a.txt"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected delete of missing file to fail with not-exist, got %v", err)
	}
}

func TestStorage_TraversalRejected(t *testing.T) {
	store := newTestStorage(t)

	for _, p := range []string{"../outside.txt", "docs/../../escape", "/etc/passwd"} {
		err := store.WriteFile(p, "x")
		if p == "/etc/passwd" {
			// an absolute path is clamped relative to the root, which is
			// safe; it must never touch the real /etc
			if err != nil && !errors.Is(err, os.ErrPermission) {
				t.Errorf("Unexpected error for %q: %v", p, err)
			}
			continue
		}
		if !errors.Is(err, os.ErrPermission) {
			t.Errorf("Expected permission error for %q, got %v", p, err)
		}
		if err != nil && errorCode(err) != "EACCES" {
			t.Errorf("Expected code EACCES for %q, got %q", p, errorCode(err))
		}
	}
}
