package llm

import "errors"

// Sentinel errors for the connector family. Connectors wrap these with
// detail; callers classify with errors.Is. Wire adapters translate the
// categories to transport codes — the core never does.
var (
	// ErrConfig — connector misconfiguration (missing key, bad model name).
	ErrConfig = errors.New("llm config error")
	// ErrNetwork — transport-level failure reaching the provider. Retryable.
	ErrNetwork = errors.New("llm network error")
	// ErrAPI — the provider returned an error response. Not retryable.
	ErrAPI = errors.New("llm api error")
	// ErrTimeout — the provider call exceeded its deadline. Retryable.
	ErrTimeout = errors.New("llm timeout")
	// ErrResponseParse — the provider's payload was not readable.
	ErrResponseParse = errors.New("llm response parse error")
	// ErrSchemaValidation — the extraction envelope failed structural
	// validation.
	ErrSchemaValidation = errors.New("llm schema validation error")
	// ErrBudgetExceeded — the extraction exceeded its token budget.
	ErrBudgetExceeded = errors.New("llm extraction budget exceeded")
	// ErrInternal — connector-internal failure with no finer category.
	ErrInternal = errors.New("llm internal error")
)

// Retryable reports whether the error category permits a retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}
