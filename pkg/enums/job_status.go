package enums

import (
	"slices"
	"strings"
)

// JobStatus tracks a job from creation through claim or expiry. Only
// pending jobs can be claimed or expired.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusAccepted JobStatus = "accepted"
	JobStatusExpired  JobStatus = "expired"
)

var jobStatuses = []JobStatus{JobStatusPending, JobStatusAccepted, JobStatusExpired}

func (s JobStatus) String() string { return string(s) }

// API is the upper-case label used on the wire.
func (s JobStatus) API() string { return strings.ToUpper(string(s)) }

func (s JobStatus) IsValid() bool { return slices.Contains(jobStatuses, s) }

func ParseJobStatus(value string) (JobStatus, error) {
	return parse("job status", jobStatuses, value)
}
