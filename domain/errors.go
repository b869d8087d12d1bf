package domain

import "errors"

// Rejection reasons shared by the core and its transports. Unauthorized and
// Forbidden are deliberately distinct errors so clients can render "you are
// not in this organization" differently from "you may not change this field".
var (
	ErrUnauthorized    = errors.New("caller does not belong to this organization")
	ErrForbidden       = errors.New("caller is not allowed to perform this operation")
	ErrNotFound        = errors.New("not found")
	ErrInvalidAssignee = errors.New("assignee does not resolve to a member of the organization")
	ErrEmailTaken      = errors.New("email is already registered")
)
