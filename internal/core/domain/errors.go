package domain

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUserNotFound      = errors.New("user not found")
	ErrCabinetNotFound   = errors.New("cabinet not found")
	ErrMemberNotFound    = errors.New("membership not found")
	ErrAlreadyMember     = errors.New("user already in cabinet")
	ErrNotMember         = errors.New("user not in cabinet")
	ErrCannotRemoveOwner = errors.New("cannot remove cabinet owner")
	ErrNotOwner          = errors.New("actor is not the cabinet owner")
)

// ErrorCode maps a domain error to the stable machine code exposed on the
// wire. Unknown errors map to INTERNAL.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case errors.Is(err, ErrUserNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, ErrCabinetNotFound):
		return "CABINET_NOT_FOUND"
	case errors.Is(err, ErrMemberNotFound):
		return "MEMBER_NOT_FOUND"
	case errors.Is(err, ErrAlreadyMember):
		return "USER_ALREADY_IN_CABINET"
	case errors.Is(err, ErrNotMember):
		return "USER_NOT_IN_CABINET"
	case errors.Is(err, ErrCannotRemoveOwner):
		return "CANNOT_REMOVE_OWNER"
	case errors.Is(err, ErrNotOwner):
		return "NOT_OWNER"
	default:
		return "INTERNAL"
	}
}
