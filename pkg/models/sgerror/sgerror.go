package sgerror

import (
	"errors"
	"fmt"
)

const (
	SG_UNEXPECTED      = "SGU"
	SG_CONFIG_ERROR    = "SGC"
	SG_ROUTING_ERROR   = "SGR"
	SG_SHARD_MAP_ERROR = "SGM"
	SG_LOCK_STORE      = "SGL"
	SG_STATEMENT_ERROR = "SGS"
	SG_TASK_ERROR      = "SGT"
	SG_NOT_IMPLEMENTED = "SGN"
)

var existingErrorCodeMap = map[string]string{
	SG_UNEXPECTED:      "Unexpected error",
	SG_CONFIG_ERROR:    "Configuration error",
	SG_ROUTING_ERROR:   "Routing error",
	SG_SHARD_MAP_ERROR: "Shard map error",
	SG_LOCK_STORE:      "Lock store error",
	SG_STATEMENT_ERROR: "Statement generation error",
	SG_TASK_ERROR:      "Task registry error",
	SG_NOT_IMPLEMENTED: "Not implemented",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &SgError{}

type SgError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, msg string) *SgError {
	return &SgError{
		Err:       errors.New(msg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *SgError {
	return &SgError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func (er *SgError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *SgError) Unwrap() error {
	return er.Err
}

// HasCode reports whether err or anything it wraps is an SgError with the
// given code.
func HasCode(err error, code string) bool {
	var sgErr *SgError
	if errors.As(err, &sgErr) {
		return sgErr.ErrorCode == code
	}
	return false
}
