package domain

import "errors"

var (
	// ErrInvalidAmount is returned when a trade size is not strictly positive
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientSupply is returned when a sell exceeds the current supply
	ErrInsufficientSupply = errors.New("insufficient supply")
)
