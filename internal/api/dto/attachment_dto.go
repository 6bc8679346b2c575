package dto

// UploadURLsRequest payload for POST /attachments/upload-urls.
type UploadURLsRequest struct {
	Files []UploadFileRequest `json:"files"`
}

// UploadFileRequest names one file to upload.
type UploadFileRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// UploadURLResponse is one issued upload target.
type UploadURLResponse struct {
	OriginalFilename string `json:"originalFilename"`
	UploadURL        string `json:"uploadUrl"`
	FileURL          string `json:"fileUrl"`
	S3Key            string `json:"s3Key"`
}

// UploadURLsResponse lists issued targets and their lifetime in seconds.
type UploadURLsResponse struct {
	UploadURLs []UploadURLResponse `json:"uploadUrls"`
	ExpiresIn  int64               `json:"expiresIn"`
}
