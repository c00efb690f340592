package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Document encodings supported by FileStore.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// FileStore persists the document as a single JSON or CBOR file.
// The format is chosen by file extension; anything but .cbor is JSON.
type FileStore struct {
	path    string
	format  string
	encMode cbor.EncMode
}

// NewFileStore creates a file persister for path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}
	format := FormatJSON
	if strings.EqualFold(filepath.Ext(path), ".cbor") {
		format = FormatCBOR
	}

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("creating cbor encoder: %w", err)
	}

	return &FileStore{path: path, format: format, encMode: em}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Format returns FormatJSON or FormatCBOR.
func (f *FileStore) Format() string {
	return f.format
}

// Load reads and decodes the document.
func (f *FileStore) Load(ctx context.Context) (*StoreDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading store file: %w", err)
	}

	var doc StoreDocument
	if f.format == FormatCBOR {
		err = cbor.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s store file %s: %w", f.format, f.path, err)
	}
	doc.normalize()
	return &doc, nil
}

// Save encodes the document and atomically replaces the file.
func (f *FileStore) Save(ctx context.Context, doc *StoreDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if f.format == FormatCBOR {
		data, err = f.encMode.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding %s store: %w", f.format, err)
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}
