package pipeline

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/dgallion1/formlens/internal/session"
)

// Job is one uploaded document waiting to be analyzed for a session.
type Job struct {
	Session  *session.Session
	Filename string
	Data     []byte

	ContentHash string
	QueuedAt    time.Time
}

// NewJob prepares an upload for the queue.
func NewJob(sess *session.Session, filename string, data []byte) *Job {
	return &Job{
		Session:     sess,
		Filename:    filename,
		Data:        data,
		ContentHash: ContentHashHex(data),
		QueuedAt:    time.Now(),
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
