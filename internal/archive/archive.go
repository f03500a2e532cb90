// Package archive bundles per-participant QR images into a single ZIP download.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"certify/pkg/slug"
)

const ext = ".png"

type File struct {
	ParticipantID string
	Name          string
	Data          []byte
}

// EntryName is "<sanitized name>_<participant id>.png".
func EntryName(name, participantID string) string {
	return slug.Filename(name) + "_" + participantID + ext
}

// ParticipantID recovers the id from an entry written by Build.
func ParticipantID(entry string) (string, bool) {
	base := path.Base(entry)
	if !strings.HasSuffix(base, ext) {
		return "", false
	}
	base = strings.TrimSuffix(base, ext)
	i := strings.LastIndex(base, "_")
	if i < 0 || i == len(base)-1 {
		return "", false
	}
	return base[i+1:], true
}

// Filename is the attachment name offered for an event's archive.
func Filename(eventSlug string) string {
	if eventSlug == "" {
		eventSlug = "event"
	}
	return eventSlug + "-qr-codes.zip"
}

func Build(files []File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()

	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     EntryName(f.Name, f.ParticipantID),
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return nil, fmt.Errorf("create zip entry for %s: %w", f.ParticipantID, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("write zip entry for %s: %w", f.ParticipantID, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}
