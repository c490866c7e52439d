package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{http.StatusBadRequest, ErrorClassClient},
		{http.StatusNotFound, ErrorClassClient},
		{http.StatusTooManyRequests, ErrorClassRateLimit},
		{http.StatusInternalServerError, ErrorClassServer},
		{http.StatusBadGateway, ErrorClassServer},
		{http.StatusServiceUnavailable, ErrorClassServer},
		{http.StatusNotModified, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "client error is retried",
			err:      &FetchError{ErrorClass: ErrorClassClient, StatusCode: 404},
			expected: true,
		},
		{
			name:     "server error is retried",
			err:      &FetchError{ErrorClass: ErrorClassServer, StatusCode: 503},
			expected: true,
		},
		{
			name:     "rate limit is retried",
			err:      &FetchError{ErrorClass: ErrorClassRateLimit, StatusCode: 429},
			expected: true,
		},
		{
			name:     "network error is retried",
			err:      &FetchError{ErrorClass: ErrorClassNetwork},
			expected: true,
		},
		{
			name:     "wrapped fetch error is retried",
			err:      fmt.Errorf("attempt: %w", &FetchError{ErrorClass: ErrorClassServer}),
			expected: true,
		},
		{
			name:     "unclassified fetch error is not retried",
			err:      &FetchError{},
			expected: false,
		},
		{
			name:     "context error is not retried",
			err:      context.Canceled,
			expected: false,
		},
		{
			name:     "plain error is not retried",
			err:      errors.New("boom"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldRetry(tt.err); got != tt.expected {
				t.Errorf("shouldRetry(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &FetchError{
		URL:        "https://pokeapi.co/api/v2/pokemon/1/",
		ErrorClass: ErrorClassNetwork,
		Message:    "transport failure",
		Err:        cause,
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if classOf(err) != ErrorClassNetwork {
		t.Errorf("classOf() = %q, want %q", classOf(err), ErrorClassNetwork)
	}
	if classOf(cause) != "" {
		t.Errorf("classOf(plain) = %q, want empty", classOf(cause))
	}
}
