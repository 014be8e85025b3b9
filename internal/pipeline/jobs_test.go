package pipeline

import (
	"testing"

	"github.com/dgallion1/formlens/internal/session"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	// SHA-256 of empty input is well-known.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob(t *testing.T) {
	sess := session.New("s1")
	job := NewJob(sess, "form.pdf", []byte("%PDF-1.4"))
	if job.Session != sess {
		t.Error("expected job bound to its session")
	}
	if job.ContentHash != ContentHashHex([]byte("%PDF-1.4")) {
		t.Errorf("expected content hash of data, got %q", job.ContentHash)
	}
	if job.QueuedAt.IsZero() {
		t.Error("expected queued time set")
	}
}
