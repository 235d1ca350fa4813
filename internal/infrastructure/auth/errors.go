package auth

import "errors"

// Token lookup errors. The reputation client treats all three as a signal to renew credentials.
var (
	ErrHostNotFound  = errors.New("auth: no token record for host")
	ErrTokenNotFound = errors.New("auth: token not set")
	ErrTokenExpired  = errors.New("auth: token expired")
)

// IsTokenError reports whether err is one of the recoverable token lookup errors
func IsTokenError(err error) bool {
	return errors.Is(err, ErrHostNotFound) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTokenExpired)
}
