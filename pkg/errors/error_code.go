package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199): fatal to the operation, never retried
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidInterval      ErrorCode = 103
	ErrCodeInvalidScope         ErrorCode = 104
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInvalidLeverage      ErrorCode = 106
	ErrCodeInvalidStopLoss      ErrorCode = 107
	ErrCodeInvalidTakeProfit    ErrorCode = 108

	// Data/Resource errors (200-299): no decision this cycle, loop continues
	ErrCodeDataUnavailable ErrorCode = 200
	ErrCodeEmptySeries     ErrorCode = 201
	ErrCodeMissingColumn   ErrorCode = 202
	ErrCodeReportNotFound  ErrorCode = 203
	ErrCodeQueryFailed     ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound    ErrorCode = 300
	ErrCodeInsufficientData     ErrorCode = 301
	ErrCodeIndicatorCalculation ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyConfigError  ErrorCode = 400
	ErrCodeStrategyRuntimeError ErrorCode = 401

	// Trading/state errors (500-599)
	ErrCodeStateInconsistency ErrorCode = 500
	ErrCodeInvalidPrice       ErrorCode = 501

	// Backtest errors (600-699)
	ErrCodeBacktestStoreFailed   ErrorCode = 600
	ErrCodeReportVersionMismatch ErrorCode = 601
	ErrCodeReportParseFailed     ErrorCode = 602

	// Market data IO errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeRateLimited           ErrorCode = 702
	ErrCodeTransportFailure      ErrorCode = 703
)
