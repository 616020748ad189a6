package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("http %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{&statusErr{429}, true},
		{&statusErr{408}, true},
		{&statusErr{503}, true},
		{&statusErr{400}, false},
		{&statusErr{404}, false},
		{errors.New("plain"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("IsRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestNextDelayHonorsRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"3"}}}
	got := NextDelay(resp, time.Second, 10*time.Second)
	if got < 2*time.Second || got > 4*time.Second {
		t.Fatalf("NextDelay = %v, want ~3s", got)
	}
}

func TestNextDelayCaps(t *testing.T) {
	got := NextDelay(nil, time.Minute, 5*time.Second)
	if got > 6*time.Second {
		t.Fatalf("NextDelay = %v, want capped around 5s", got)
	}
}
