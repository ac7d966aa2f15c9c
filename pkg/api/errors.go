package api

// Машиночитаемые коды ошибок API
const (
	CodeUnauthenticated = "unauthenticated" // нет или неверный формат Authorization
	CodeForbidden       = "forbidden"       // access токен недействителен или истек
	CodeRejected        = "rejected"        // refresh токен не принят
	CodeValidation      = "validation_error"
	CodeGateway         = "gateway_error"
	CodeSignature       = "signature_error"
	CodeConflict        = "conflict"
	CodeRateLimited     = "rate_limited"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // HTTP status text
	Code    string `json:"code"`              // машиночитаемый код
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
