package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// ErrInvalidFileName is returned for sidecar names that would escape the
// partition directory.
var ErrInvalidFileName = errors.New("invalid sidecar file name")

// FileWriter writes sidecar files next to the session partition, outside
// the dataset snapshot machinery.
type FileWriter interface {
	PutFile(ctx context.Context, filename string, data []byte) error
}

var _ FileWriter = (*LodeClient)(nil)

// PutFile writes data under the session's files/ prefix.
func (c *LodeClient) PutFile(ctx context.Context, filename string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, filename)
	}
	store, err := c.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, c.config.Dataset)
	}

	path := c.FilePath(filename)
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapWriteError(err, path)
	}
	return nil
}

// FilePath returns the storage path of a sidecar file.
// Format: datasets/<dataset>/partitions/session_id=<s>/day=<d>/files/<filename>
func (c *LodeClient) FilePath(filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/session_id=%s/day=%s/files/%s",
		c.config.Dataset,
		c.config.SessionID,
		c.config.Day,
		filename,
	)
}

func (c *LodeClient) getOrCreateStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}

// StubFileWriter keeps sidecar files in memory.
type StubFileWriter struct {
	mu    sync.Mutex
	Files map[string][]byte
}

// NewStubFileWriter creates an empty stub file writer.
func NewStubFileWriter() *StubFileWriter {
	return &StubFileWriter{Files: make(map[string][]byte)}
}

// PutFile implements FileWriter.
func (w *StubFileWriter) PutFile(_ context.Context, filename string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Files[filename] = append([]byte(nil), data...)
	return nil
}

var _ FileWriter = (*StubFileWriter)(nil)
