package models

import "time"

// LaunchRequestStatus is the state-machine tag for a LaunchRequest (§4.2).
type LaunchRequestStatus string

const (
	LaunchStatusQueued       LaunchRequestStatus = "queued"
	LaunchStatusProvisioning LaunchRequestStatus = "provisioning"
	LaunchStatusFulfilled    LaunchRequestStatus = "fulfilled"
	LaunchStatusCancelled    LaunchRequestStatus = "cancelled"
	LaunchStatusFailed       LaunchRequestStatus = "failed"
)

// IsTerminal reports whether no further transitions are permitted (§8 P6).
func (s LaunchRequestStatus) IsTerminal() bool {
	return s == LaunchStatusFulfilled || s == LaunchStatusCancelled || s == LaunchStatusFailed
}

// IsPending reports whether the request still occupies the candidate's single in-flight
// request slot (§3 I1, §8 P2).
func (s LaunchRequestStatus) IsPending() bool {
	return s == LaunchStatusQueued || s == LaunchStatusProvisioning
}

// validTransitions is the state machine from §4.2.
var validTransitions = map[LaunchRequestStatus][]LaunchRequestStatus{
	LaunchStatusQueued:       {LaunchStatusProvisioning, LaunchStatusCancelled, LaunchStatusFailed},
	LaunchStatusProvisioning: {LaunchStatusFulfilled, LaunchStatusQueued, LaunchStatusFailed},
	LaunchStatusFulfilled:    {},
	LaunchStatusCancelled:    {},
	LaunchStatusFailed:       {},
}

// CanTransitionTo reports whether moving from s to next is a legal state-machine edge
// (§8 P6: a terminal request is never mutated further).
func (s LaunchRequestStatus) CanTransitionTo(next LaunchRequestStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Failure reasons recorded on a failed/cancelled LaunchRequest.
const (
	FailureInsufficientQuota    = "insufficient_quota"
	FailureCandidateDeactivated = "candidate_deactivated"
)

// LaunchRequest is a user's submission for a GPU VM; keyed by a random uuid in the
// `launch-requests` collection.
type LaunchRequest struct {
	ID                  string              `json:"id"`
	CandidateEmail      string              `json:"candidateEmail"`
	InstanceTypes       []string            `json:"instanceTypes"`
	Regions             []string            `json:"regions"`
	SSHPublicKey        string              `json:"sshPublicKey"`
	AttachFilesystem    bool                `json:"attachFilesystem"`
	Status              LaunchRequestStatus `json:"status"`
	CreatedAt           time.Time           `json:"createdAt"`
	Attempts            int                 `json:"attempts"`
	LastAttemptAt       *time.Time          `json:"lastAttemptAt,omitempty"`
	FulfilledAt         *time.Time          `json:"fulfilledAt,omitempty"`
	FulfilledInstanceID string              `json:"fulfilledInstanceId,omitempty"`
	FailureReason       string              `json:"failureReason,omitempty"`
	CancelledAt         *time.Time          `json:"cancelledAt,omitempty"`
}
