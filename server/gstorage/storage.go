package gstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const UPLOAD_TIMEOUT = 50 * time.Second

var ErrObjectNotExist = storage.ErrObjectNotExist

type GStorage struct {
	storageClient *storage.Client
}

func NewGStorage(ctx context.Context, credentialsFilePath string) (*GStorage, error) {
	var client *storage.Client
	var err error

	if credentialsFilePath != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFilePath))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{storageClient: client}, nil
}

// ObjectName joins a bucket prefix & a name e.g. ObjectName("dev", "safetrip.db") is "dev/safetrip.db"
func ObjectName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// UploadFile uploads the file at 'filePath' as 'object'
func (gs *GStorage) UploadFile(ctx context.Context, bucket, object, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("os.Open: %v", err)
	}
	defer f.Close()

	return gs.UploadObject(ctx, bucket, object, f)
}

// UploadObject streams 'content' into 'object'
func (gs *GStorage) UploadObject(ctx context.Context, bucket, object string, content io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, UPLOAD_TIMEOUT)
	defer cancel()

	wc := gs.storageClient.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(wc, content); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}

	return nil
}

// DownloadFile downloads 'object' to 'destFileName'. It returns ErrObjectNotExist,
// without creating the file, when there's no such object.
func (gs *GStorage) DownloadFile(ctx context.Context, bucket, object, destFileName string) error {
	ctx, cancel := context.WithTimeout(ctx, UPLOAD_TIMEOUT)
	defer cancel()

	rc, err := gs.storageClient.Bucket(bucket).Object(object).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return err
	}
	if err != nil {
		return fmt.Errorf("Object(%q).NewReader: %v", object, err)
	}
	defer rc.Close()

	f, err := os.OpenFile(destFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %v", err)
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("f.Close: %v", err)
	}

	return nil
}

func (gs *GStorage) Close() error {
	return gs.storageClient.Close()
}
