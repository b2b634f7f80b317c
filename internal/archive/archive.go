// Package archive keeps a copy of every PDF received through the webhook.
package archive

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xelth-com/watibridge/internal/config"
)

// Archive stores an attachment and returns where it was put
type Archive interface {
	Store(ctx context.Context, ref, filename string, data []byte) (string, error)
}

// New returns the local archive, mirrored to FTP when a host is configured
func New(cfg config.ArchiveConfig) Archive {
	local := NewLocal(cfg.Dir)
	if cfg.FTPHost == "" {
		return local
	}
	return &Mirrored{Primary: local, Mirror: NewFTP(cfg)}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// objectName builds "<ref>_<filename>" with a safe filename; ref defaults to a new uuid
func objectName(ref, filename string) string {
	if ref == "" {
		ref = uuid.NewString()
	}
	name := unsafeChars.ReplaceAllString(filepath.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "attachment.pdf"
	}
	return ref + "_" + name
}

// Local writes attachments below a directory, one subdirectory per month
type Local struct {
	dir string
	now func() time.Time
}

// NewLocal creates a local archive rooted at dir
func NewLocal(dir string) *Local {
	return &Local{dir: dir, now: time.Now}
}

func (l *Local) Store(_ context.Context, ref, filename string, data []byte) (string, error) {
	sub := filepath.Join(l.dir, l.now().UTC().Format("2006-01"))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := filepath.Join(sub, objectName(ref, filename))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return path, nil
}

// Mirrored stores into Primary and copies to Mirror; mirror failures are only logged
type Mirrored struct {
	Primary Archive
	Mirror  Archive
}

func (m *Mirrored) Store(ctx context.Context, ref, filename string, data []byte) (string, error) {
	path, err := m.Primary.Store(ctx, ref, filename, data)
	if err != nil {
		return "", err
	}
	if _, err := m.Mirror.Store(ctx, ref, filename, data); err != nil {
		log.Printf("⚠️ Archive: mirror upload of %s failed: %v", filename, err)
	}
	return path, nil
}
