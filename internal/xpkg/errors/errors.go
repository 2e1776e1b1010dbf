package errors

import "errors"

var (
	ErrParseCmd = errors.New("cannot parse arguments")

	ErrMBConn = errors.New("message broker connection failure")
	ErrMBCh   = errors.New("message broker channel failure")
)
