package pipeline

import "github.com/pkg/errors"

// Eligibility errors are rejected before any file processing and never
// leave a Submission record behind. Callers match them with errors.Is.
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrNotParticipant    = errors.New("user is not a participant of the challenge")
	ErrChallengeNotOpen  = errors.New("challenge is not open for submissions")
	ErrQuotaExceeded     = errors.New("daily submission limit exceeded")
)
