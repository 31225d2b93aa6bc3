package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Forecasting-specific errors

var (
	// ErrContractViolation indicates a loaded model does not match the manifest contract
	ErrContractViolation = errors.New("model contract violation")

	// ErrStorage indicates an artifact storage failure other than not-found
	ErrStorage = errors.New("artifact storage failure")

	// ErrForecastFailed indicates the forecast pipeline failed after validation
	ErrForecastFailed = errors.New("forecast failed")
)

// ContractViolationError reports a mismatch between the feature count the
// manifest declares and the feature count the loaded model actually has.
// It carries both numbers so startup logs can show the full contract.
type ContractViolationError struct {
	Expected int
	Actual   int
}

// Error implements the error interface
func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("model contract violation: manifest expects %d features, loaded model reports %d", e.Expected, e.Actual)
}

// Unwrap makes errors.Is(err, ErrContractViolation) hold
func (e *ContractViolationError) Unwrap() error {
	return ErrContractViolation
}

// NewContractViolation creates a contract violation error
func NewContractViolation(expected, actual int) *ContractViolationError {
	return &ContractViolationError{Expected: expected, Actual: actual}
}

// StorageError wraps an artifact storage failure with the operation and key
// that failed. Not-found conditions use ErrNotFound instead.
type StorageError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying cause
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches the ErrStorage sentinel while preserving the cause chain
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError creates a storage error for the given operation and key
func NewStorageError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}

// ForecastError wraps any failure inside the forecast pipeline into a single
// opaque error per product, preserving the underlying cause message.
type ForecastError struct {
	ProductID string
	Err       error
}

// Error implements the error interface
func (e *ForecastError) Error() string {
	return fmt.Sprintf("forecast failed for product %s: %v", e.ProductID, e.Err)
}

// Unwrap returns the underlying cause
func (e *ForecastError) Unwrap() error {
	return e.Err
}

// Is matches the ErrForecastFailed sentinel while preserving the cause chain
func (e *ForecastError) Is(target error) bool {
	return target == ErrForecastFailed
}

// NewForecastError creates a forecast pipeline error for a product
func NewForecastError(productID string, err error) *ForecastError {
	return &ForecastError{ProductID: productID, Err: err}
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
