package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPollNotFound    = errors.New("poll not found")
	ErrInvalidPollID   = fmt.Errorf("%w: invalid poll id", ErrPollNotFound)
	ErrInvalidOption   = errors.New("invalid option for this poll")
	ErrAlreadyVoted    = errors.New("identity has already voted on this poll")
	ErrDidNotVote      = errors.New("user did not vote on this poll")
	ErrDuplicateOption = errors.New("this option already exists")
	ErrForbidden       = errors.New("only the poll creator can do this")
	ErrAuthRequired    = errors.New("authentication required")
	ErrValidation      = errors.New("validation failed")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem found in one request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
