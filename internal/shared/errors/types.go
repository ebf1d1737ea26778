package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// EmptyDataMessage is the client-visible text for every not-found condition.
const EmptyDataMessage = "empty data!"

// BadRequestError represents a request rejected before any store work starts.
type BadRequestError struct {
	Err     error
	Message string
}

func (e *BadRequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("bad request: %v", e.Err)
}

func (e *BadRequestError) Unwrap() error {
	return e.Err
}

// NotFoundError represents a missing metadata row or a missing blob handle.
type NotFoundError struct {
	Err     error
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return EmptyDataMessage
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// TransferError represents a chunk read or write failure mid-transfer.
type TransferError struct {
	Err     error
	Chunk   int // zero-based index of the failing chunk
	Message string
}

func (e *TransferError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("transfer failed at chunk %d: %v", e.Chunk, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// StoreError represents a transaction or connection level failure.
type StoreError struct {
	Err     error
	Op      string
	Message string
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(err error, message string) error {
	return &BadRequestError{Err: err, Message: message}
}

// NewNotFoundError creates a not-found error carrying EmptyDataMessage.
func NewNotFoundError(err error) error {
	return &NotFoundError{Err: err, Message: EmptyDataMessage}
}

// NewTransferError creates a new transfer error for the given chunk index.
func NewTransferError(err error, chunk int) error {
	return &TransferError{Err: err, Chunk: chunk}
}

// NewStoreError creates a new store error tagged with the failed operation.
func NewStoreError(err error, op string) error {
	return &StoreError{Err: err, Op: op}
}

// IsBadRequest checks if an error is a bad request
func IsBadRequest(err error) bool {
	var target *BadRequestError
	return errors.As(err, &target)
}

// IsNotFound checks if an error is a not-found condition
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTransfer checks if an error is a transfer failure
func IsTransfer(err error) bool {
	var target *TransferError
	return errors.As(err, &target)
}

// IsStore checks if an error is a store failure
func IsStore(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// HTTPStatus maps an error onto the response status used by the delivery layer.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsBadRequest(err), IsNotFound(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to clients. Internal failures
// are replaced by a generic text unless expose is set.
func PublicMessage(err error, expose bool) string {
	if err == nil {
		return ""
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}
	var badRequest *BadRequestError
	if errors.As(err, &badRequest) {
		return badRequest.Error()
	}
	if expose {
		return err.Error()
	}
	return "internal error"
}
