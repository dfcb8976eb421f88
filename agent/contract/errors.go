package contract

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidMode           = errors.New("invalid mode")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrNoTopicSelected       = errors.New("no topic selected")
	ErrCorruptPersistedState = errors.New("corrupt persisted state")
	ErrTransient             = errors.New("transient failure")
	ErrAlreadyFinalized      = errors.New("already finalized")
	ErrUnknownTool           = errors.New("unknown tool")
)

type ErrorCode string

const (
	CodeOK                    ErrorCode = ""
	CodeNotFound              ErrorCode = "NOT_FOUND"
	CodeEmptyCart             ErrorCode = "EMPTY_CART"
	CodeInvalidMode           ErrorCode = "INVALID_MODE"
	CodeInvalidArgument       ErrorCode = "INVALID_ARGUMENT"
	CodeNoTopicSelected       ErrorCode = "NO_TOPIC_SELECTED"
	CodeCorruptPersistedState ErrorCode = "CORRUPT_PERSISTED_STATE"
	CodeTransient             ErrorCode = "TRANSIENT"
	CodeAlreadyFinalized      ErrorCode = "ALREADY_FINALIZED"
	CodeUnknownTool           ErrorCode = "UNKNOWN_TOOL"
	CodeInternal              ErrorCode = "INTERNAL"
)

var codeBySentinel = []struct {
	err  error
	code ErrorCode
}{
	{ErrNotFound, CodeNotFound},
	{ErrEmptyCart, CodeEmptyCart},
	{ErrInvalidMode, CodeInvalidMode},
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrNoTopicSelected, CodeNoTopicSelected},
	{ErrCorruptPersistedState, CodeCorruptPersistedState},
	{ErrTransient, CodeTransient},
	{ErrAlreadyFinalized, CodeAlreadyFinalized},
	{ErrUnknownTool, CodeUnknownTool},
}

// CodeOf maps an error chain to its stable code. Unrecognized errors are CodeInternal.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}
	for _, c := range codeBySentinel {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Recoverable reports whether the failure should become a re-prompt rather than an apology.
func Recoverable(err error) bool {
	switch CodeOf(err) {
	case CodeTransient, CodeInternal:
		return false
	default:
		return true
	}
}
