package services

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// ArchiveWriter collects named documents into one archive
type ArchiveWriter interface {
	Add(name string, data []byte) error
	Close() error
}

// ZipArchive writes documents into a ZIP stream
type ZipArchive struct {
	zw      *zip.Writer
	modTime time.Time
	closed  bool
}

// NewZipArchive creates a ZIP archive writing to w
func NewZipArchive(w io.Writer, modTime time.Time) *ZipArchive {
	return &ZipArchive{zw: zip.NewWriter(w), modTime: modTime}
}

// Add writes one compressed entry
func (a *ZipArchive) Add(name string, data []byte) error {
	if a.closed {
		return fmt.Errorf("archive is closed")
	}
	f, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.modTime,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", name, err)
	}
	return nil
}

// Close finishes the archive. Closing twice is a no-op.
func (a *ZipArchive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	return a.zw.Close()
}
