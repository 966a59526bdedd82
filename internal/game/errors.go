package game

import (
	"errors"
	"fmt"
)

// Kind groups error codes into the classes callers branch on.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindValidation           Kind = "validation"
	KindInsufficientFunds    Kind = "insufficient_funds"
	KindInsufficientQuantity Kind = "insufficient_quantity"
	KindInsufficientTurns    Kind = "insufficient_turns"
	KindPolicyViolation      Kind = "policy_violation"
	KindPartition            Kind = "partition"
	KindConflict             Kind = "conflict"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeGameNotFound         Code = "GAME_NOT_FOUND"
	CodePlayerNotFound       Code = "PLAYER_NOT_FOUND"
	CodeUserNotFound         Code = "USER_NOT_FOUND"
	CodeResourceNotAvailable Code = "RESOURCE_NOT_AVAILABLE"

	CodeInvalidAmount   Code = "INVALID_AMOUNT"
	CodeInvalidQuantity Code = "INVALID_QUANTITY"
	CodeInvalidResource Code = "INVALID_RESOURCE"
	CodeInvalidType     Code = "INVALID_TYPE"
	CodeInvalidName     Code = "INVALID_NAME"
	CodeInvalidGame     Code = "INVALID_GAME"

	CodeNoFunds           Code = "NO_FUNDS"
	CodeInsufficientCash  Code = "INSUFFICIENT_CASH"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	CodeInsufficientQuantity Code = "INSUFFICIENT_QUANTITY"
	CodeInsufficientTurns    Code = "INSUFFICIENT_TURNS"

	CodeBankNotEmpty       Code = "BANK_NOT_EMPTY"
	CodeDepositCapExceeded Code = "DEPOSIT_CAP_EXCEEDED"
	CodeGameComplete       Code = "GAME_COMPLETE"
	CodeForbidden          Code = "FORBIDDEN"

	CodePartitionMissing Code = "PARTITION_MISSING"
	CodePartitionFailed  Code = "PARTITION_FAILED"

	CodeTxConflict           Code = "TX_CONFLICT"
	CodeDuplicateRequest     Code = "DUPLICATE_REQUEST"
	CodeAlreadyJoined        Code = "ALREADY_JOINED"
	CodeNameTaken            Code = "NAME_TAKEN"
	CodeConcurrentUpdateLost Code = "CONCURRENT_UPDATE_LOST"
)

// Error is the domain error returned by every Service operation. Message is
// safe to show to players; Cause carries store errors for logs only.
type Error struct {
	Kind     Kind
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code when the target carries one, else by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return t.Kind != "" && e.Kind == t.Kind
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrInsufficientFunds    = &Error{Kind: KindInsufficientFunds}
	ErrInsufficientQuantity = &Error{Kind: KindInsufficientQuantity}
	ErrInsufficientTurns    = &Error{Kind: KindInsufficientTurns}
	ErrPolicyViolation      = &Error{Kind: KindPolicyViolation}
	ErrPartition            = &Error{Kind: KindPartition}

	ErrTxConflict           = &Error{Kind: KindConflict, Code: CodeTxConflict, Message: "too much contention, try again"}
	ErrDuplicateIdempotency = &Error{Kind: KindConflict, Code: CodeDuplicateRequest, Message: "request already processed"}
	ErrGameNotFound         = &Error{Kind: KindNotFound, Code: CodeGameNotFound, Message: "game not found"}
	ErrPlayerNotFound       = &Error{Kind: KindNotFound, Code: CodePlayerNotFound, Message: "player not found"}
	ErrUserNotFound         = &Error{Kind: KindNotFound, Code: CodeUserNotFound, Message: "user not found"}
	ErrGameComplete         = &Error{Kind: KindPolicyViolation, Code: CodeGameComplete, Message: "game is complete"}
)

func newError(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func validationError(code Code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func policyError(code Code, format string, args ...any) *Error {
	return newError(KindPolicyViolation, code, format, args...)
}

// shortfallError builds an insufficiency error carrying requested and
// available amounts.
func shortfallError(kind Kind, code Code, requested, available fmt.Stringer, format string, args ...any) *Error {
	e := newError(kind, code, format, args...)
	e.Metadata = map[string]string{
		"requested": requested.String(),
		"available": available.String(),
	}
	return e
}

func partitionError(code Code, gameID int64, cause error) *Error {
	return &Error{
		Kind:     KindPartition,
		Code:     code,
		Message:  fmt.Sprintf("game %d data is unavailable", gameID),
		Metadata: map[string]string{"game_id": fmt.Sprint(gameID)},
		Cause:    cause,
	}
}

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

type count int64

func (c count) String() string {
	return fmt.Sprint(int64(c))
}
