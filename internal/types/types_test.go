package types

import (
	"strings"
	"testing"
	"time"
)

func TestNewMessageStampsTimestamp(t *testing.T) {
	msg := NewMessage(RoleUser, "hello", "")
	if msg.Role != RoleUser || msg.Content != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if _, err := time.Parse(time.RFC3339, msg.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", msg.Timestamp, err)
	}
}

func TestFailureMirrorsErrorIntoContent(t *testing.T) {
	res := Failure("gemini", errTest("quota exceeded"))
	if !res.Failed {
		t.Fatal("expected failed result")
	}
	if res.Backend != "gemini" {
		t.Errorf("expected backend gemini, got %q", res.Backend)
	}
	if !strings.Contains(res.Content, "quota exceeded") {
		t.Errorf("expected error text in content, got %q", res.Content)
	}
	if !strings.Contains(res.ErrorDetail, "quota exceeded") {
		t.Errorf("expected error detail, got %q", res.ErrorDetail)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
