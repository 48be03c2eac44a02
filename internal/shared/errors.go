package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage returns a message that can be shown to end users without
// leaking persistence internals. Known sentinels keep their text; anything
// else collapses to a generic line.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Donnée introuvable"
	case errors.Is(err, ErrInvalidCredentials):
		return "Email ou mot de passe incorrect"
	case errors.Is(err, ErrIdempotencyConflict):
		return "Cette demande a déjà été traitée"
	default:
		return "Une erreur est survenue, veuillez réessayer"
	}
}
