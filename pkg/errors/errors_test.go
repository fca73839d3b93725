package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeConfiguration: http.StatusServiceUnavailable,
		CodeValidation:    http.StatusBadRequest,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeRemoteWrite:   http.StatusBadGateway,
		CodeSubscription:  http.StatusServiceUnavailable,
		CodeNotFound:      http.StatusNotFound,
		CodeRateLimit:     http.StatusTooManyRequests,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("code %s: expected status %d, got %d", code, status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOT_A_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(CodeRemoteWrite, cause, "send message")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Code() != CodeRemoteWrite {
		t.Fatalf("expected remote write code, got %s", err.Code())
	}
}

func TestAsUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := New(CodeValidation, "quantity below bulk minimum")
	outer := fmt.Errorf("create negotiation: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through wrap chain")
	}
	if typed.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", typed.Code())
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeSubscription, "feed unavailable")
	if !HasCode(err, CodeSubscription) {
		t.Fatal("expected matching code")
	}
	if HasCode(err, CodeValidation) {
		t.Fatal("did not expect validation code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Fatal("plain errors carry no code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad payload").WithDetails(map[string]string{"quantity": "must be at least 100"})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details type %T", err.Details())
	}
	if details["quantity"] == "" {
		t.Fatal("expected quantity detail")
	}
}
