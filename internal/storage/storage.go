// Package storage saves uploaded post images.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"yatube/internal/util"
)

// Uploader stores a file under path and returns the value to keep on the
// post: a path relative to MEDIA_URL, or an absolute URL.
type Uploader interface {
	UploadFile(ctx context.Context, file *multipart.FileHeader, path string) (string, error)
}

var (
	_ Uploader = (*LocalStorage)(nil)
	_ Uploader = (*S3Client)(nil)
	_ Uploader = (*GCSClient)(nil)
)

// PostImagePath is where an uploaded post image is stored.
func PostImagePath(originalName string) string {
	return path.Join("posts", util.GenerateUniqueFilename(originalName))
}

// SniffContentType reads the start of the upload to find its real type.
func SniffContentType(file *multipart.FileHeader) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// CheckImage fails unless the upload is an image.
func CheckImage(file *multipart.FileHeader) error {
	contentType, err := SniffContentType(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("%s is not an image", contentType)
	}
	return nil
}
