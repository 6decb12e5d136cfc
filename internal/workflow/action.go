package workflow

// Action is a workflow transition trigger. Action values double as the
// action names recorded in approval history rows.
type Action string

const (
	ActionSubmit            Action = "SUBMIT"
	ActionApproveDM         Action = "APPROVE_DM"
	ActionRequestQuotes     Action = "REQUEST_QUOTES"
	ActionSelectQuote       Action = "SELECT_QUOTE"
	ActionApproveAccountant Action = "APPROVE_ACCOUNTANT"
	ActionApproveFinal      Action = "APPROVE_FINAL"
	ActionTransferFunds     Action = "TRANSFER_FUNDS"
	ActionReject            Action = "REJECT"
	ActionReturn            Action = "RETURN"
	ActionCancel            Action = "CANCEL"
)

// Notification event types produced by transitions
const (
	EventRequestSubmitted = "request.submitted"
	EventDMApproved       = "request.dm_approved"
	EventQuotesRequested  = "request.quotes_requested"
	EventQuoteSelected    = "request.quote_selected"
	EventAcctApproved     = "request.accountant_approved"
	EventFinalApproved    = "request.final_approved"
	EventFundsTransferred = "request.funds_transferred"
	EventRequestRejected  = "request.rejected"
	EventRequestReturned  = "request.returned"
	EventRequestCancelled = "request.cancelled"
)
