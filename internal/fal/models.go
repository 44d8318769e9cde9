package fal

import "fmt"

// Queue statuses reported by fal.
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// QueueSubmission is returned when a request is enqueued.
type QueueSubmission struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

// QueueStatus is one poll of a queued request.
type QueueStatus struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position,omitempty"`
	Error         string `json:"error,omitempty"`
}

type uploadInitRequest struct {
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

type uploadInitResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
}

// APIError is a non-2xx response from fal.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FAL API error (status %d): %s", e.StatusCode, e.Body)
}
