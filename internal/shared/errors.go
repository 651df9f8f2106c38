package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates sign-in failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken indicates a duplicate registration email.
	ErrEmailTaken = errors.New("email already in use")
	// ErrWeakPassword indicates the password failed policy checks.
	ErrWeakPassword = errors.New("weak password")
	// ErrForbidden indicates the actor lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps internal errors to localized messages that are safe
// to surface to end users. Anything unmapped becomes a generic message so
// storage details never leak.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Запись не найдена"
	case errors.Is(err, ErrInvalidCredentials):
		return "Неверный email или пароль"
	case errors.Is(err, ErrEmailTaken):
		return "Email уже используется"
	case errors.Is(err, ErrWeakPassword):
		return "Слабый пароль"
	case errors.Is(err, ErrForbidden):
		return "Недостаточно прав"
	}
	return "Внутренняя ошибка, попробуйте позже"
}
