package protocol

import (
	"path/filepath"
	"strings"

	"hzrealtime/internal/pkg/errs"
)

const (
	// MaxContentBytes is the maximum allowed size (in bytes) of message text.
	MaxContentBytes = 5000

	// MaxAttachmentsCount is the maximum number of attachments per message.
	MaxAttachmentsCount = 3
)

// AllowedMIMETypes defines the set of permitted MIME types for attachment references.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"image/gif":       {},
	"application/pdf": {},
}

// ExtToMIME maps file extensions to their MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// Attachment references a file already uploaded through the upload endpoints.
type Attachment struct {
	Key      string `json:"fileKey"`
	Name     string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"fileSize"`
}

// ValidateFileType checks that the file name's extension matches an allowed MIME type.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrAttachmentTypeInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrAttachmentTypeInvalid)
	}

	return nil
}

// ValidateOutgoing checks content length and attachment references of a message
// before it is handed to the channel.
func ValidateOutgoing(content string, attachments []Attachment) *errs.CustomError {
	if len(content) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	if len(attachments) > MaxAttachmentsCount {
		return errs.NewError(errs.ErrAttachmentCountInvalid, MaxAttachmentsCount)
	}

	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	for _, a := range attachments {
		if a.Key == "" {
			return errs.NewError(errs.ErrAttachmentTypeInvalid)
		}
		if err := ValidateFileType(a.Name, a.MimeType); err != nil {
			return err
		}
	}

	return nil
}
