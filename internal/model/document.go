package model

type Document struct {
	ID           string `json:"id"`
	OriginalName string `json:"original_name"`
	StoragePath  string `json:"storage_path"`
	ContentType  string `json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	UploadedAt   int64  `json:"uploaded_at"`
}
