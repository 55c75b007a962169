package models

import "errors"

// Model-level sentinel errors. Business flows wrap these with coded
// BusinessError values before they reach the API layer.
var (
	ErrTierCapacityExceeded  = errors.New("tier capacity exceeded")
	ErrMinimumTiersViolation = errors.New("minimum tier count violated")
	ErrTierNotFound          = errors.New("tier not found")

	ErrInvalidDealAttributes = errors.New("invalid deal attributes")
)
