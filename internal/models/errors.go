package models

import "errors"

// Domain errors. Callers wrap these with fmt.Errorf("...: %w", err)
// and the API boundary maps them to status codes with errors.Is.
var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrOrderAlreadyCancelled = errors.New("order already cancelled")
	ErrInvalidOrderStatus    = errors.New("invalid order status")
	ErrInvalidTransition     = errors.New("illegal order status transition")
	ErrCycleDetected         = errors.New("cycle detected in category tree")
	ErrTreeTooDeep           = errors.New("category tree exceeds depth limit")
	ErrDeleteInProgress      = errors.New("subtree delete already in progress")
	ErrValidation            = errors.New("validation failed")
	ErrForbidden             = errors.New("forbidden")
)
