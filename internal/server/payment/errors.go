package payment

import "errors"

var (
	// ErrValidation - некорректная корзина (пустая, нулевая сумма и т.д.).
	// Транспорт: 400 validation_error.
	ErrValidation = errors.New("invalid checkout request")

	// ErrGateway - шлюз не создал сессию (ошибка или таймаут).
	// Транспорт: 502 gateway_error.
	ErrGateway = errors.New("payment gateway error")

	// ErrSignature - подпись webhook не прошла проверку или тело не разбирается.
	// Транспорт: 400 signature_error.
	ErrSignature = errors.New("webhook signature verification failed")
)
