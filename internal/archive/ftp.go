package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/xelth-com/watibridge/internal/config"
)

// FTP uploads attachments to a remote directory
type FTP struct {
	cfg config.ArchiveConfig
}

// NewFTP creates an FTP archive
func NewFTP(cfg config.ArchiveConfig) *FTP {
	return &FTP{cfg: cfg}
}

func (f *FTP) Store(ctx context.Context, ref, filename string, data []byte) (string, error) {
	addr := fmt.Sprintf("%s:%d", f.cfg.FTPHost, f.cfg.FTPPort)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to connect to FTP server: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(f.cfg.FTPUsername, f.cfg.FTPPassword); err != nil {
		return "", fmt.Errorf("failed to login to FTP server: %w", err)
	}

	dir := path.Clean("/" + f.cfg.FTPDir)
	if err := ensureDir(conn, dir); err != nil {
		return "", err
	}

	remote := path.Join(dir, objectName(ref, filename))
	if err := conn.Stor(remote, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", remote, err)
	}
	return fmt.Sprintf("ftp://%s%s", f.cfg.FTPHost, remote), nil
}

// ensureDir creates every missing element of an absolute POSIX path
func ensureDir(conn *ftp.ServerConn, dir string) error {
	if dir == "/" {
		return nil
	}
	current := ""
	for _, part := range splitPath(dir) {
		current += "/" + part
		if err := conn.ChangeDir(current); err == nil {
			continue
		}
		if err := conn.MakeDir(current); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", current, err)
		}
	}
	return conn.ChangeDir("/")
}

func splitPath(p string) []string {
	var parts []string
	for p != "/" && p != "." && p != "" {
		dir, file := path.Split(p)
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		p = path.Clean(dir)
	}
	return parts
}
