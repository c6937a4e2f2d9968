package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can tell failures apart without parsing messages.
type Kind string

const (
	InvalidPayload     Kind = "InvalidPayload"
	MissingQuestions   Kind = "MissingQuestions"
	MissingModules     Kind = "MissingModules"
	MissingQuiz        Kind = "MissingQuiz"
	ModuleNotFound     Kind = "ModuleNotFound"
	GroupNotFound      Kind = "GroupNotFound"
	QuizNotFound       Kind = "QuizNotFound"
	SubmissionNotFound Kind = "SubmissionNotFound"
	CrossGroupModules  Kind = "CrossGroupModules"
	Forbidden          Kind = "Forbidden"
	NoQuestions        Kind = "NoQuestions"
	StorageFailure     Kind = "StorageFailure"
)

// Error is the typed failure returned by the quiz and submission services.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg = e.Message
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind only, so errors.Is(err, &Error{Kind: QuizNotFound}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Storage wraps a collaborator I/O failure.
func Storage(op string, err error) *Error {
	return Wrap(StorageFailure, op, "storage failure", err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
