package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-leave/internal/pkg/storage"
	"github.com/google/uuid"
)

var (
	ErrInvalidFileType = errors.New("invalid file type: only pdf, jpg, jpeg, png, doc, docx allowed")
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
)

var leaveDocumentTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

type FileService interface {
	// UploadLeaveDocument stores a leave request attachment and returns its storage path.
	UploadLeaveDocument(ctx context.Context, userID string, file io.Reader, filename string, size int64) (string, error)

	// OwnsLeaveDocument reports whether path is a stored leave document uploaded by userID.
	OwnsLeaveDocument(ctx context.Context, userID, path string) (bool, error)

	DeleteFile(ctx context.Context, path string) error
	GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type fileServiceImpl struct {
	storage     storage.FileStorage
	maxFileSize int64
}

func NewFileService(storage storage.FileStorage, maxFileSize int64) FileService {
	return &fileServiceImpl{
		storage:     storage,
		maxFileSize: maxFileSize,
	}
}

// UploadLeaveDocument uploads a leave request attachment
func (s *fileServiceImpl) UploadLeaveDocument(ctx context.Context, userID string, file io.Reader, filename string, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := leaveDocumentTypes[ext]
	if !ok {
		return "", ErrInvalidFileType
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return "", ErrFileTooLarge
	}

	// leave/{userID}/{uuid}-{unix}.{ext}
	newFilename := fmt.Sprintf("%s-%d%s", uuid.New().String(), time.Now().Unix(), ext)
	path := filepath.ToSlash(filepath.Join("leave", userID, newFilename))

	uploadedPath, err := s.storage.Upload(ctx, file, path, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload leave document: %w", err)
	}

	return uploadedPath, nil
}

func (s *fileServiceImpl) OwnsLeaveDocument(ctx context.Context, userID, path string) (bool, error) {
	if userID == "" || path != filepath.ToSlash(filepath.Clean(path)) {
		return false, nil
	}
	if !strings.HasPrefix(path, "leave/"+userID+"/") {
		return false, nil
	}

	exists, err := s.storage.Exists(ctx, path)
	if err != nil {
		return false, fmt.Errorf("failed to check leave document: %w", err)
	}
	return exists, nil
}

// DeleteFile deletes a file
func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

// GetFileURL generates URL to access file
func (s *fileServiceImpl) GetFileURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return s.storage.GetURL(ctx, path, expiry)
}
