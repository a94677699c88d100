package model

import "errors"

var (
	ErrInvalidInput  = errors.New("input is not a number")
	ErrInvalidOption = errors.New("option is not in the product set")
	ErrNoSubflow     = errors.New("no product selection in progress")
	ErrNotFound      = errors.New("record not found")
)
