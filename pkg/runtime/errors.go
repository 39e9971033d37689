package runtime

import "fmt"

// Code classifies a runtime failure. Every error the evaluator raises
// carries exactly one code so hosts and tests can dispatch on it.
type Code string

const (
	UndefinedName          Code = "UndefinedName"
	ArityMismatch          Code = "ArityMismatch"
	TypeMismatch           Code = "TypeMismatch"
	PreconditionViolation  Code = "PreconditionViolation"
	PostconditionViolation Code = "PostconditionViolation"
	InvariantViolation     Code = "InvariantViolation"
	MatchNotExhaustive     Code = "MatchNotExhaustive"
	AmbiguousDispatch      Code = "AmbiguousDispatch"
	DivisionByZero         Code = "DivisionByZero"
	UnwrapEmpty            Code = "UnwrapEmpty"
	RawError               Code = "RawError"
)

// Error is a structured runtime error. Contract violations additionally
// carry the literal clause text and the owning function or type name.
type Error struct {
	Code     Code
	Message  string
	Clause   string // literal source of the violated contract clause
	Owner    string // function or type the clause belongs to
	Location string // "file:line:col" when known
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Clause != "" {
		msg += fmt.Sprintf(" (clause: %s)", e.Clause)
	}
	if e.Location != "" {
		msg = e.Location + ": " + msg
	}
	return msg
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ContractError builds a violation error quoting the failed clause.
func ContractError(code Code, owner, clause string) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("contract of %s violated", owner),
		Clause:  clause,
		Owner:   owner,
	}
}

// CodeOf extracts the code from any error, returning RawError for errors
// that did not originate in the evaluator.
func CodeOf(err error) Code {
	if rt, ok := err.(*Error); ok {
		return rt.Code
	}
	return RawError
}
