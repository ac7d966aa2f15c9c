package models

import "time"

// User представляет покупателя (identity) в системе
type User struct {
	CreatedAt    time.Time  `json:"created_at"`           // время регистрации
	LastLogin    *time.Time `json:"last_login,omitempty"` // время последнего входа
	ID           string     `json:"id"`                   // UUID пользователя
	Email        string     `json:"email"`                // уникальный email, natural key
	PasswordHash string     `json:"-"`                    // bcrypt хеш пароля
}

// RefreshToken представляет запись в индексе активных refresh токенов.
// Сам токен (JWT) хранится только у клиента, сервер хранит его jti.
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения
	CreatedAt time.Time `json:"created_at"` // время выдачи
	ID        string    `json:"id"`         // jti токена
	UserID    string    `json:"user_id"`    // ID пользователя (subject)
}

// Expired сообщает, истек ли токен к моменту now
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
