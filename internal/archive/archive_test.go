package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir)
	l.now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }

	path, err := l.Store(context.Background(), "log-1", "../SEM 105.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Store error: %v", err)
	}
	want := filepath.Join(dir, "2025-05", "log-1_SEM_105.pdf")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, []byte("%PDF")) {
		t.Fatalf("read back = %q, %v", data, err)
	}
}

func TestObjectNameDefaults(t *testing.T) {
	name := objectName("", "")
	if !strings.HasSuffix(name, "_attachment.pdf") || len(name) < 36 {
		t.Fatalf("objectName = %q", name)
	}
}

func TestSplitPath(t *testing.T) {
	got := splitPath("/a/b/c")
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("splitPath = %v", got)
	}
	if len(splitPath("/")) != 0 {
		t.Fatal("root should have no parts")
	}
}

type failingArchive struct{}

func (failingArchive) Store(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("unreachable")
}

func TestMirroredIgnoresMirrorFailure(t *testing.T) {
	m := &Mirrored{Primary: NewLocal(t.TempDir()), Mirror: failingArchive{}}
	if _, err := m.Store(context.Background(), "x", "a.pdf", []byte("1")); err != nil {
		t.Fatalf("Store error: %v", err)
	}
	m = &Mirrored{Primary: failingArchive{}, Mirror: NewLocal(t.TempDir())}
	if _, err := m.Store(context.Background(), "x", "a.pdf", []byte("1")); err == nil {
		t.Fatal("expected primary failure")
	}
}
