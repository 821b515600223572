package flags

import (
	"errors"
	"fmt"
	"strings"
)

const (
	assignmentSeparatorConstant      = "="
	fieldSeparatorConstant           = "."
	invalidAssignmentMessageConstant = "invalid assignment"
	assignmentErrorTemplateConstant  = "%w %q (expected %s)"
	assignmentFormConstant           = "name=value"
	fieldAssignmentFormConstant      = "name.field=value"
)

// ErrInvalidAssignment indicates a malformed name=value argument.
var ErrInvalidAssignment = errors.New(invalidAssignmentMessageConstant)

// Assignment is a parsed name[.field]=value argument.
type Assignment struct {
	Key   string
	Field string
	Value string
}

// ParseAssignment splits "name=value". The value may be empty; the name may not.
func ParseAssignment(rawAssignment string) (Assignment, error) {
	key, value, found := strings.Cut(rawAssignment, assignmentSeparatorConstant)
	key = strings.TrimSpace(key)
	if !found || len(key) == 0 {
		return Assignment{}, fmt.Errorf(assignmentErrorTemplateConstant, ErrInvalidAssignment, rawAssignment, assignmentFormConstant)
	}
	return Assignment{Key: key, Value: strings.TrimSpace(value)}, nil
}

// ParseFieldAssignment splits "name.field=value". The field is taken after the last dot of the left side.
func ParseFieldAssignment(rawAssignment string) (Assignment, error) {
	assignment, parseError := ParseAssignment(rawAssignment)
	if parseError != nil {
		return Assignment{}, fmt.Errorf(assignmentErrorTemplateConstant, ErrInvalidAssignment, rawAssignment, fieldAssignmentFormConstant)
	}
	separatorIndex := strings.LastIndex(assignment.Key, fieldSeparatorConstant)
	if separatorIndex <= 0 || separatorIndex == len(assignment.Key)-1 {
		return Assignment{}, fmt.Errorf(assignmentErrorTemplateConstant, ErrInvalidAssignment, rawAssignment, fieldAssignmentFormConstant)
	}
	assignment.Field = assignment.Key[separatorIndex+1:]
	assignment.Key = assignment.Key[:separatorIndex]
	return assignment, nil
}
