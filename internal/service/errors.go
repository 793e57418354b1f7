package service

import "errors"

var (
	ErrInputTooLarge = errors.New("input text too large")
	ErrInvalidMode   = errors.New("invalid mode")
)
