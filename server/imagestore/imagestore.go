package imagestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/idowu-gb/MAD-Project/server/gstorage"
	"github.com/idowu-gb/MAD-Project/utils"
)

var allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".heic": true, ".webp": true}

// Store saves a trip photo and returns the reference to keep on the trip
type Store interface {
	Save(ctx context.Context, tripID uint, filename string, content io.Reader) (string, error)
}

// DiskStore keeps images under Dir and returns file:// references
type DiskStore struct {
	Dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if err := utils.CreateDirIfNotExist(absDir); err != nil {
		return nil, err
	}

	return &DiskStore{Dir: absDir}, nil
}

func (ds *DiskStore) Save(ctx context.Context, tripID uint, filename string, content io.Reader) (string, error) {
	name, err := objectName(tripID, filename)
	if err != nil {
		return "", err
	}

	filePath := filepath.Join(ds.Dir, name)
	if err := utils.CreateDirIfNotExist(filepath.Dir(filePath)); err != nil {
		return "", err
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, readerWithContext(ctx, content)); err != nil {
		f.Close()
		os.Remove(filePath)
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return "file://" + filepath.ToSlash(filePath), nil
}

type objectUploader interface {
	UploadObject(ctx context.Context, bucket, object string, content io.Reader) error
}

// GCSStore uploads images to a Google Cloud Storage bucket and returns gs:// references
type GCSStore struct {
	uploader objectUploader
	bucket   string
	prefix   string
}

func NewGCSStore(storage *gstorage.GStorage, bucket, prefix string) *GCSStore {
	return &GCSStore{uploader: storage, bucket: bucket, prefix: prefix}
}

func (gs *GCSStore) Save(ctx context.Context, tripID uint, filename string, content io.Reader) (string, error) {
	name, err := objectName(tripID, filename)
	if err != nil {
		return "", err
	}

	object := gstorage.ObjectName(gs.prefix, name)
	if err := gs.uploader.UploadObject(ctx, gs.bucket, object, content); err != nil {
		return "", err
	}

	return fmt.Sprintf("gs://%s/%s", gs.bucket, object), nil
}

// objectName is "trips/<tripID>/<uuid><ext>". The client's filename only contributes its extension.
func objectName(tripID uint, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported image type '%v'", ext)
	}

	return fmt.Sprintf("trips/%d/%s%s", tripID, uuid.NewString(), ext), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
