package store

import (
	"errors"
	"testing"
)

func TestWrapKeepsCause(t *testing.T) {
	if Wrap("get", KindTask, "t1", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}

	err := Wrap("get", KindTask, "t1", ErrNotFound)
	if !IsNotFound(err) {
		t.Fatalf("expected not found to be detectable")
	}

	var storeErr *Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected *Error")
	}
	if storeErr.Kind != KindTask || storeErr.ID != "t1" {
		t.Fatalf("unexpected error fields: %+v", storeErr)
	}
	if err.Error() != "get task t1: not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if msg := Wrap("list", KindLabel, "", errors.New("boom")).Error(); msg != "list label: boom" {
		t.Fatalf("unexpected message %q", msg)
	}
}
