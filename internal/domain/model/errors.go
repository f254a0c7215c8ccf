package model

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFriends    = errors.New("users are not friends")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadCredential = errors.New("invalid username or password")
)
