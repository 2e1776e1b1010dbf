package core

import "errors"

var (
	ErrHelp = errors.New("")

	ErrDBConn = errors.New("db connection failure")
	ErrMBConn = errors.New("message broker connection failure")

	ErrFieldIsEmpty  = errors.New("field is empty")
	ErrOrderNotFound = errors.New("order not found")

	// ErrRatingNotAllowed is returned when a rating is submitted for an
	// order that has not been delivered.
	ErrRatingNotAllowed = errors.New("order is not rateable yet")
)
