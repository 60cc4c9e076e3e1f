package models

// Request and response bodies of the HTTP API. Every response carries
// Success and, when it is false, Error.

// Envelope is the part shared by every response.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// VerifyPasswordRequest is the body of POST /api/verify-password.
type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// FormatRequest is the body of POST /api/format.
type FormatRequest struct {
	Content  string   `json:"content"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// FormatResponse carries the formatted body and optional suggestions.
type FormatResponse struct {
	Envelope
	FormattedContent  string   `json:"formatted_content"`
	SuggestedTitle    string   `json:"suggested_title,omitempty"`
	SuggestedCategory string   `json:"suggested_category,omitempty"`
	SuggestedTags     []string `json:"suggested_tags,omitempty"`
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
	Content  string   `json:"content"`
}

// PreviewResponse returns the generated front matter block.
type PreviewResponse struct {
	Envelope
	FrontMatter string `json:"front_matter"`
}

// PublishRequest is the body of POST /api/publish.
type PublishRequest struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	Category   string   `json:"category"`
	TargetDir  string   `json:"target_dir"`
	Draft      bool     `json:"draft"`
	AutoFormat bool     `json:"auto_format"`
}

// PublishResponse returns the id of the queued job.
type PublishResponse struct {
	Envelope
	JobID string `json:"job_id"`
}

// StatusResponse is returned by GET /api/status/{jobId}.
type StatusResponse struct {
	Envelope
	Job *PublishJob `json:"job,omitempty"`
}

// FileEntry is one item of a directory listing.
type FileEntry struct {
	Name      string  `json:"name"`
	Path      string  `json:"path"`
	Type      string  `json:"type"`
	Size      int64   `json:"size"`
	URL       string  `json:"url,omitempty"`
	UpdatedAt *string `json:"updated_at"`
}

// FilesResponse is returned by GET /api/files.
type FilesResponse struct {
	Envelope
	Path  string      `json:"path"`
	Files []FileEntry `json:"files"`
}

// FileResponse is returned by GET /api/file. Content is decoded text.
type FileResponse struct {
	Envelope
	Path    string `json:"path"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

// DeleteResponse is returned by DELETE /api/file.
type DeleteResponse struct {
	Envelope
	Path string `json:"path,omitempty"`
}

// UploadImageResponse is returned by POST /api/upload-image.
type UploadImageResponse struct {
	Envelope
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// SiteConfig describes what the backend accepts.
type SiteConfig struct {
	DefaultTargetDir string   `json:"default_target_dir"`
	Directories      []string `json:"directories"`
	SupportedFormats []string `json:"supported_formats"`
	MaxContentSize   int64    `json:"max_content_size"`
	MaxImageSize     int64    `json:"max_image_size"`
}

// ConfigResponse is returned by GET /api/config.
type ConfigResponse struct {
	Envelope
	Config SiteConfig `json:"config"`
}
