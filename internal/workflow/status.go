package workflow

import "fmt"

// Status is the closed set of states a request moves through. Unknown values
// are rejected at the boundary by ParseStatus; nothing in the core operates
// on a raw string.
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusSubmitted        Status = "SUBMITTED"
	StatusDMApproved       Status = "DM_APPROVED"
	StatusQuotesRequested  Status = "QUOTES_REQUESTED"
	StatusQuoteSelected    Status = "QUOTE_SELECTED"
	StatusAcctApproved     Status = "ACCT_APPROVED"
	StatusFinalApproved    Status = "FINAL_APPROVED"
	StatusFundsTransferred Status = "FUNDS_TRANSFERRED"
	StatusRejected         Status = "REJECTED"
	StatusReturned         Status = "RETURNED"
	StatusCancelled        Status = "CANCELLED"
)

var allStatuses = map[Status]bool{
	StatusDraft:            true,
	StatusSubmitted:        true,
	StatusDMApproved:       true,
	StatusQuotesRequested:  true,
	StatusQuoteSelected:    true,
	StatusAcctApproved:     true,
	StatusFinalApproved:    true,
	StatusFundsTransferred: true,
	StatusRejected:         true,
	StatusReturned:         true,
	StatusCancelled:        true,
}

// ParseStatus converts a stored string into a Status, rejecting anything
// outside the closed set.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !allStatuses[status] {
		return "", fmt.Errorf("unknown request status %q", s)
	}
	return status, nil
}

// IsTerminal reports whether no further transitions are possible from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFundsTransferred, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Editable reports whether the requester may still edit request fields
// directly. RETURNED is editable so the requester can fix and resubmit.
func (s Status) Editable() bool {
	return s == StatusDraft || s == StatusReturned
}

func (s Status) String() string {
	return string(s)
}
