package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrInvalid - общая ошибка валидации входных данных.
// Все функции пакета оборачивают ее, чтобы транспорт мог отдать 400 validation_error.
var ErrInvalid = errors.New("invalid input")

const (
	// MaxEmailLen максимальная длина email (RFC 5321)
	MaxEmailLen = 254
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 8
	// MaxPasswordLen ограничение bcrypt на длину входа в байтах
	MaxPasswordLen = 72
)

// NormalizeEmail приводит email к каноническому виду (без пробелов, в нижнем регистре)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrInvalid)
	}

	if len(email) > MaxEmailLen {
		return fmt.Errorf("%w: email must not exceed %d characters", ErrInvalid, MaxEmailLen)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email has invalid format", ErrInvalid)
	}

	return nil
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", ErrInvalid)
	}

	if len(password) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalid, MinPasswordLen)
	}

	if len(password) > MaxPasswordLen {
		return fmt.Errorf("%w: password must not exceed %d bytes", ErrInvalid, MaxPasswordLen)
	}

	return nil
}
