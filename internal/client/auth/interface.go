package auth

import (
	"context"

	"github.com/iudanet/themeshop/internal/client/storage"
	pkgapi "github.com/iudanet/themeshop/pkg/api"
)

//go:generate moq -out service_mock.go . Service

// Service - операции клиента от имени пользователя.
// Вызовы Checkout и Orders берут токен из сохраненной сессии и
// при ответе 403 один раз обновляют пару токенов.
type Service interface {
	// Register регистрирует нового пользователя, сессию не создает
	Register(ctx context.Context, email, password string) (*RegisterResult, error)

	// Login выполняет аутентификацию и сохраняет сессию
	Login(ctx context.Context, email, password string) (*LoginResult, error)

	// Logout отзывает токены на сервере (best effort) и удаляет локальную сессию
	Logout(ctx context.Context) error

	// Status возвращает сохраненную сессию или storage.ErrAuthNotFound
	Status(ctx context.Context) (*storage.AuthData, error)

	// Checkout создает платежную сессию для корзины
	Checkout(ctx context.Context, req *pkgapi.CheckoutRequest) (*pkgapi.CheckoutResponse, error)

	// Orders возвращает историю покупок и отмен
	Orders(ctx context.Context) (*pkgapi.OrdersResponse, error)
}

// APIClient - HTTP API сервера, используемое SessionManager
type APIClient interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
	CreateCheckoutSession(ctx context.Context, accessToken string, req *pkgapi.CheckoutRequest) (*pkgapi.CheckoutResponse, error)
	Orders(ctx context.Context, accessToken string) (*pkgapi.OrdersResponse, error)
}
