package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err    *ServiceError
		code   ErrorCode
		status int
	}{
		{BadRequest("bad input"), CodeBadRequest, http.StatusBadRequest},
		{NotFound("missing"), CodeNotFound, http.StatusNotFound},
		{Unauthorized("no identity"), CodeUnauthorized, http.StatusUnauthorized},
		{InvalidToken(fmt.Errorf("expired")), CodeInvalidToken, http.StatusUnauthorized},
		{RateLimitExceeded(10, "1s"), CodeRateLimitExceeded, http.StatusTooManyRequests},
		{UpstreamUnavailable("llm down", nil), CodeUpstreamUnavailable, http.StatusBadGateway},
		{Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if tc.err.Code != tc.code {
			t.Errorf("code = %s, want %s", tc.err.Code, tc.code)
		}
		if tc.err.HTTPStatus != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.code, tc.err.HTTPStatus, tc.status)
		}
	}
}

func TestUnwrapAndGetServiceError(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := UpstreamUnavailable("completion failed", cause)

	if !stderrors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}

	wrapped := fmt.Errorf("handler: %w", err)
	se := GetServiceError(wrapped)
	if se == nil || se.Code != CodeUpstreamUnavailable {
		t.Fatalf("got %+v", se)
	}

	if GetServiceError(fmt.Errorf("plain")) != nil {
		t.Fatalf("expected nil for plain error")
	}
}

func TestWithDetails(t *testing.T) {
	err := RateLimitExceeded(10, "1s")
	if err.Details["limit"] != 10 || err.Details["window"] != "1s" {
		t.Fatalf("details = %v", err.Details)
	}
}
