package model

// PropagationState is a step of a propagation-node sync job.
type PropagationState string

const (
	PropIdle               PropagationState = "idle"
	PropPathRequested      PropagationState = "path_requested"
	PropLinkEstablishing   PropagationState = "link_establishing"
	PropLinkEstablished    PropagationState = "link_established"
	PropRequestSent        PropagationState = "request_sent"
	PropReceiving          PropagationState = "receiving"
	PropResponseReceived   PropagationState = "response_received"
	PropComplete           PropagationState = "complete"
	PropNoPath             PropagationState = "no_path"
	PropLinkFailed         PropagationState = "link_failed"
	PropTransferFailed     PropagationState = "transfer_failed"
	PropNoIdentityReceived PropagationState = "no_identity_received"
	PropNoAccess           PropagationState = "no_access"
	PropFailed             PropagationState = "failed"
)

// Terminal reports whether the job has finished, successfully or not.
func (s PropagationState) Terminal() bool {
	switch s {
	case PropComplete, PropNoPath, PropLinkFailed, PropTransferFailed,
		PropNoIdentityReceived, PropNoAccess, PropFailed:
		return true
	}
	return false
}

// PropagationStatus is the polled state of the sync job.
type PropagationStatus struct {
	State            PropagationState `json:"state"`
	Progress         float64          `json:"progress"`
	MessagesReceived int              `json:"messages_received"`
}
