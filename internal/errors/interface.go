package errors

// ErrorCode identifies a class of failure. Codes are stable strings so they can
// be logged as fields and matched with HasCode.
type ErrorCode string

// Error is a coded error carrying optional message, cause and data.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
	// Join wraps every non-nil error of errs under a single code. It returns
	// nil when errs holds no error.
	Join(code ErrorCode, errs ...error) Error
}
