package cli

// ErrorCode defines error types for CLI operations
type ErrorCode string

const (
	InvalidArguments ErrorCode = "InvalidArguments"
	InvalidStrategy  ErrorCode = "InvalidStrategy"
	ReportWrite      ErrorCode = "ReportWriteFailed"
	RelayIncomplete  ErrorCode = "RelayIncomplete"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
