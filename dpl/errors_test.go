package dpl

import (
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestIsCodeMatchesWrappedError(t *testing.T) {
	base := newErr(CodeNoEnt, nil, "no such key")
	wrapped := pkgerrors.Wrap(base, "get")

	if !IsCode(wrapped, CodeNoEnt) {
		t.Fatal("IsCode should see through pkg/errors.Wrap")
	}
	if IsCode(wrapped, CodeIO) {
		t.Fatal("IsCode should not match a different code")
	}
}

func TestIsCodeFalseForPlainError(t *testing.T) {
	if IsCode(fmt.Errorf("plain"), CodeFailure) {
		t.Fatal("IsCode should return false for a non-*Error")
	}
}

func TestErrorStringIncludesCauseAndMessage(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := newErr(CodeIO, cause, "put object")
	got := err.Error()
	if got != "EIO: put object: connection reset" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestNewRetryableErrSetsFlag(t *testing.T) {
	err := newRetryableErr(CodeIO, nil, "transient")
	if !err.Retryable {
		t.Fatal("newRetryableErr should set Retryable")
	}
}
