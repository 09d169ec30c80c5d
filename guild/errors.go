package guild

import "errors"

// Error kinds returned by the cogs. Command handlers turn these into chat replies.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAlreadyActive    = errors.New("already active")
	ErrNotActive        = errors.New("not active")
	ErrHierarchy        = errors.New("role is above the bot's highest role")
	ErrGatewayDenied    = errors.New("discord refused the request")
)

// Faults reported by a gateway implementation.
var (
	ErrForbidden = errors.New("forbidden")
	ErrUnknown   = errors.New("unknown entity")
)
