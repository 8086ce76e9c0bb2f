package model

import "time"

// UploadStatus tracks the blob-store side of a Document's lifecycle.
type UploadStatus string

const (
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// OCRStatus tracks text extraction for a Document.
type OCRStatus string

const (
	OCRPending    OCRStatus = "pending"
	OCRProcessing OCRStatus = "processing"
	OCRCompleted  OCRStatus = "completed"
	OCRFailed     OCRStatus = "failed"
)

// Document is a file attached to a Conversation by its owning User.
type Document struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	UserID         string       `json:"userId"`
	Filename       string       `json:"filename"`
	FileType       string       `json:"fileType"`
	FileSize       int64        `json:"fileSize"`
	BlobKey        string       `json:"blobKey"`
	DownloadURL    *string      `json:"downloadUrl,omitempty"`
	UploadStatus   UploadStatus `json:"uploadStatus"`
	OCRStatus      OCRStatus    `json:"ocrStatus"`
	OCRText        *string      `json:"ocrText,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// AllowedMimeTypes lists the mime types accepted for document upload (§4.6).
var AllowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/heic":      true,
	"image/heif":      true,
}

// MaxFileSizeBytes is the maximum allowed upload size per spec §4.6/§8
// (the config default; internal/config.Config.MaxDocumentBytes overrides it
// at runtime, but handlers fall back to this constant in tests).
const MaxFileSizeBytes = 10 * 1024 * 1024
