package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimasrn/community-gateway/pkg/logger"
)

// Kind is a class of uploaded file. Each kind lives in its own directory and
// is served from its own base URL.
type Kind string

const (
	UserPhoto   Kind = "users"
	GroupPhoto  Kind = "groups"
	GroupAsset  Kind = "assets"
	Attachment  Kind = "attachments"
	PayoutProof Kind = "payouts"
)

// Local resolves uploaded files on the local disk. Uploading itself happens
// in front of the API; this only builds URLs and removes files.
type Local struct {
	root string
	urls map[Kind]string
}

func NewLocal(root string, urls map[Kind]string) *Local {
	clean := make(map[Kind]string, len(urls))
	for k, u := range urls {
		clean[k] = strings.TrimRight(u, "/")
	}
	return &Local{root: root, urls: clean}
}

// URL returns the public URL of filename, or "" when there is no file.
func (l *Local) URL(kind Kind, filename string) string {
	if filename == "" {
		return ""
	}
	base, ok := l.urls[kind]
	if !ok || base == "" {
		return "/" + string(kind) + "/" + filename
	}
	return base + "/" + filename
}

func (l *Local) Path(kind Kind, filename string) string {
	return filepath.Join(l.root, string(kind), filepath.Base(filename))
}

// Remove deletes the file when it exists. Failures are logged and otherwise
// ignored.
func (l *Local) Remove(kind Kind, filename string) {
	if filename == "" {
		return
	}
	p := l.Path(kind, filename)
	if _, err := os.Stat(p); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("stat upload failed", "path", p, "error", err)
		}
		return
	}
	if err := os.Remove(p); err != nil {
		logger.Warn("remove upload failed", "path", p, "error", err)
	}
}
