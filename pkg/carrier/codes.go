package carrier

// Carrier error codes referenced by this module.
const (
	CodeTooManyRequests    = 20429
	CodeInternalError      = 20500
	CodeServiceUnavailable = 20503
	CodeQueueOverflow      = 30001
	CodeUnknownError       = 30008

	CodeInvalidToNumber  = 21211
	CodeUnsubscribed     = 21610
	CodeCarrierViolation = 30007
)
