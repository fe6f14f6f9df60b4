// Package storage uploads task attachments and returns their public URLs.
package storage

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// FileStore persists binary content and returns a URL clients can fetch it from.
type FileStore interface {
	Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (string, error)
}

// Buckets names where manager and operator attachments live.
type Buckets struct {
	Manager  string
	Operator string
}

// ObjectName builds the stored name for an upload: <unixMillis>_<base name>.
func ObjectName(now time.Time, original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	base = strings.ReplaceAll(base, " ", "_")
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + base
}
