package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 16MB in bytes, matching the request form limit
	MaxFileSize = 16 * 1024 * 1024
	// MaxAvatarSize is 5MB in bytes
	MaxAvatarSize = 5 * 1024 * 1024
)

// allowedAttachmentExts are the file types accepted on the request form
var allowedAttachmentExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".pdf":  true,
	".zip":  true,
	".doc":  true,
	".docx": true,
}

// allowedAvatarExts are the image types accepted for profile avatars
var allowedAvatarExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateAttachment validates an uploaded request attachment
func ValidateAttachment(fileHeader *multipart.FileHeader) error {
	return validateFile(fileHeader, allowedAttachmentExts, MaxFileSize)
}

// ValidateAvatar validates an uploaded avatar image
func ValidateAvatar(fileHeader *multipart.FileHeader) error {
	return validateFile(fileHeader, allowedAvatarExts, MaxAvatarSize)
}

func validateFile(fileHeader *multipart.FileHeader, allowed map[string]bool, maxSize int64) error {
	if fileHeader.Size > maxSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", maxSize/(1024*1024)),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowed[ext] {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("File type %q is not allowed", ext),
		}
	}

	return nil
}
