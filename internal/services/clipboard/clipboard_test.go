package clipboard

import (
	"errors"
	"testing"
)

func TestServiceCopyWritesText(t *testing.T) {
	var written string
	service := &Service{writeAll: func(text string) error {
		written = text
		return nil
	}}
	if err := service.Copy("a.ts\nb.ts"); err != nil {
		t.Fatalf("Copy error: %v", err)
	}
	if written != "a.ts\nb.ts" {
		t.Fatalf("unexpected clipboard content %q", written)
	}
}

func TestServiceCopyReportsFailures(t *testing.T) {
	failure := errors.New("xclip missing")
	service := &Service{writeAll: func(string) error { return failure }}
	if err := service.Copy("text"); !errors.Is(err, failure) {
		t.Fatalf("expected wrapped failure, got %v", err)
	}

	unsupported := &Service{unsupported: true, writeAll: func(string) error {
		t.Fatalf("writeAll must not run when the clipboard is unsupported")
		return nil
	}}
	if err := unsupported.Copy("text"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
