// Package transcript persists raw session transcripts as a best-effort side
// channel. Nothing reads them back; a failed save never fails an intake.
package transcript

import (
	"context"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/afero"
	"google.golang.org/api/option"
)

// Store saves a named blob.
type Store interface {
	Save(ctx context.Context, name string, data []byte) error
}

// FileName returns the transcript file name for a session.
func FileName(stamp, sessionID string) string {
	return "session_" + stamp + "_" + sessionID + ".txt"
}

// AudioFileName returns the audio file name for a session. ext includes the
// leading dot and may be empty.
func AudioFileName(stamp, sessionID, ext string) string {
	return "session_" + stamp + "_" + sessionID + ".audio" + ext
}

// FileStore writes blobs into a directory.
type FileStore struct {
	fs  *afero.Afero
	dir string
}

// NewFileStore returns a FileStore rooted at dir on fs. A nil fs means the
// OS filesystem.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileStore{fs: &afero.Afero{Fs: fs}, dir: dir}
}

// Save writes data to dir/name, creating dir if needed.
func (s *FileStore) Save(_ context.Context, name string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create transcript directory", goerr.V("dir", s.dir))
	}
	path := filepath.Join(s.dir, filepath.Base(name))
	if err := s.fs.WriteFile(path, data, os.FileMode(0o644)); err != nil {
		return goerr.Wrap(err, "failed to write transcript", goerr.V("path", path))
	}
	return nil
}

// GCSStore writes blobs as objects in a Cloud Storage bucket.
type GCSStore struct {
	bucket string
	client *storage.Client
}

// NewGCSStore creates a Cloud Storage client using application default
// credentials unless opts say otherwise.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &GCSStore{bucket: bucket, client: client}, nil
}

// Save uploads data as object name.
func (s *GCSStore) Save(ctx context.Context, name string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return goerr.Wrap(err, "failed to write object", goerr.V("bucket", s.bucket), goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", s.bucket), goerr.V("object", name))
	}
	return nil
}

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
