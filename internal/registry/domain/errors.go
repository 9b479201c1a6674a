package domain

import "errors"

var (
	ErrDeedAlreadyRegistered = errors.New("deed is already registered")
	ErrDeedNotFound          = errors.New("deed not found")
	ErrEmptyURI              = errors.New("deed uri cannot be empty")
	ErrNotHolder             = errors.New("transferor is not the current holder")
	ErrNotAuthorized         = errors.New("caller is neither holder nor approved custodian")
)
