package errors

import (
	"errors"
	"sync"

	"churndb/internal/observability"
)

// ErrorHandler provides centralized error logging
type ErrorHandler struct {
	logger *observability.Logger
	mu     sync.Mutex
	count  map[ErrorCode]int
}

// NewErrorHandler creates a new error handler writing to the given logger
func NewErrorHandler(logger *observability.Logger) *ErrorHandler {
	if logger == nil {
		logger = observability.GetDefaultLogger()
	}
	return &ErrorHandler{
		logger: logger,
		count:  make(map[ErrorCode]int),
	}
}

// Handle logs an error with its code, severity and context
func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Wrap(err, ErrCodeInternal, err.Error())
	}

	h.mu.Lock()
	h.count[appErr.Code]++
	h.mu.Unlock()

	fields := map[string]interface{}{
		"code":     string(appErr.Code),
		"severity": string(appErr.Severity),
	}
	for k, v := range appErr.Context {
		fields[k] = v
	}
	if appErr.Cause != nil {
		fields["cause"] = appErr.Cause.Error()
	}

	switch appErr.Severity {
	case SeverityWarning, SeverityInfo:
		h.logger.WarnWithFields(appErr.Message, fields)
	default:
		h.logger.ErrorWithFields(appErr.Message, fields)
	}
}

// Count returns how many errors with the given code were handled
func (h *ErrorHandler) Count(code ErrorCode) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count[code]
}

// TransactionHandler manages error handling for transactions
type TransactionHandler struct {
	handler      *ErrorHandler
	rollbackFunc func() error
	committed    bool
}

// NewTransactionHandler creates a new transaction handler
func (h *ErrorHandler) NewTransactionHandler(rollbackFunc func() error) *TransactionHandler {
	return &TransactionHandler{
		handler:      h,
		rollbackFunc: rollbackFunc,
	}
}

// Execute runs fn and rolls back when it fails
func (th *TransactionHandler) Execute(fn func() error) error {
	err := fn()

	if err != nil {
		th.handler.Handle(err)

		if th.rollbackFunc != nil && !th.committed {
			if rollbackErr := th.rollbackFunc(); rollbackErr != nil {
				th.handler.Handle(Wrap(rollbackErr, ErrCodeSQLTransaction, "Failed to rollback transaction"))
			} else {
				th.handler.logger.Info("Transaction rolled back")
			}
		}

		return err
	}

	th.committed = true
	return nil
}
