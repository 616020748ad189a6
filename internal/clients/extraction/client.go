package extraction

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Job status as reported by the provider. Submit returns Created; Poll
// resolves the rest.
const (
	StatusCreated      = "created"
	StatusInProgress   = "in_progress"
	StatusSuccess      = "success"
	StatusClientError  = "client_error"
	StatusServiceError = "service_error"
)

// Client starts a long-running extraction job and polls it by handle. Poll
// must be safe to call repeatedly and from a different process than the one
// that called Submit.
type Client interface {
	Submit(ctx context.Context, in SubmitInput) (JobHandle, error)
	Poll(ctx context.Context, h JobHandle) (PollResult, error)
	Close() error
}

type SubmitInput struct {
	DocumentID     uuid.UUID
	FileURI        string
	FileType       string
	ProcessingType string
}

// JobHandle carries everything needed to reattach to the provider operation.
type JobHandle struct {
	Name        string `json:"name"`
	MediaType   string `json:"media_type"`
	MetadataURI string `json:"metadata_uri,omitempty"`
}

type Shot struct {
	Index         int     `json:"index"`
	StartSeconds  float64 `json:"start_seconds"`
	EndSeconds    float64 `json:"end_seconds"`
	StartTimecode string  `json:"start_timecode"`
	EndTimecode   string  `json:"end_timecode"`
}

type PollResult struct {
	Status      string   `json:"status"`
	Detail      string   `json:"detail,omitempty"`
	MetadataURI string   `json:"metadata_uri,omitempty"`
	Outputs     []string `json:"outputs,omitempty"`
	Shots       []Shot   `json:"shots,omitempty"`
}

// Terminal reports whether the status will never change on further polls.
func Terminal(status string) bool {
	switch status {
	case StatusSuccess, StatusClientError, StatusServiceError:
		return true
	}
	return false
}

// FormatTimecode renders seconds as hh:mm:ss.mmm.
func FormatTimecode(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(seconds*1000 + 0.5)
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
