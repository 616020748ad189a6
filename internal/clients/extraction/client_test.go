package extraction

import (
	"testing"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/docsight/docsight-backend/internal/domain"
)

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		code codes.Code
		want string
	}{
		{codes.InvalidArgument, StatusClientError},
		{codes.NotFound, StatusClientError},
		{codes.PermissionDenied, StatusClientError},
		{codes.Unauthenticated, StatusClientError},
		{codes.FailedPrecondition, StatusClientError},
		{codes.OutOfRange, StatusClientError},
		{codes.Internal, StatusServiceError},
		{codes.Unavailable, StatusServiceError},
		{codes.ResourceExhausted, StatusServiceError},
		{codes.DeadlineExceeded, StatusServiceError},
		{codes.Unknown, StatusServiceError},
	}
	for _, tc := range cases {
		err := grpcstatus.Error(tc.code, "boom")
		if got := statusFromError(err); got != tc.want {
			t.Fatalf("statusFromError(%v) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []string{StatusSuccess, StatusClientError, StatusServiceError} {
		if !Terminal(s) {
			t.Fatalf("Terminal(%q) = false", s)
		}
	}
	for _, s := range []string{StatusCreated, StatusInProgress, ""} {
		if Terminal(s) {
			t.Fatalf("Terminal(%q) = true", s)
		}
	}
}

func TestFormatTimecode(t *testing.T) {
	cases := []struct {
		sec  float64
		want string
	}{
		{0, "00:00:00.000"},
		{1.5, "00:00:01.500"},
		{61.25, "00:01:01.250"},
		{3661.001, "01:01:01.001"},
		{-4, "00:00:00.000"},
	}
	for _, tc := range cases {
		if got := FormatTimecode(tc.sec); got != tc.want {
			t.Fatalf("FormatTimecode(%v) = %q, want %q", tc.sec, got, tc.want)
		}
	}
}

func TestIsAV(t *testing.T) {
	cases := []struct {
		pt   string
		mime string
		want bool
	}{
		{domain.ProcessingTypeVideo, "application/pdf", true},
		{domain.ProcessingTypeAudio, "application/pdf", true},
		{domain.ProcessingTypeDocument, "video/mp4", true},
		{domain.ProcessingTypeDocument, "audio/mpeg", true},
		{domain.ProcessingTypeDocument, "application/pdf", false},
		{"", "image/png", false},
	}
	for _, tc := range cases {
		if got := isAV(tc.pt, tc.mime); got != tc.want {
			t.Fatalf("isAV(%q, %q) = %v, want %v", tc.pt, tc.mime, got, tc.want)
		}
	}
}
