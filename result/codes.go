package result

// Shared taxonomy codes. Per-operation failures use <VERB>_<NOUN>_FAILED
// strings passed at the call site, e.g. CREATE_USER_FAILED.
const (
	CodeConnectionFailed      = "CONNECTION_FAILED"
	CodeNotConnected          = "NOT_CONNECTED"
	CodeNotFound              = "NOT_FOUND"
	CodeNotImplemented        = "NOT_IMPLEMENTED"
	CodeTransactionFailed     = "TRANSACTION_FAILED"
	CodeTransactionRolledBack = "TRANSACTION_ROLLED_BACK"
)
