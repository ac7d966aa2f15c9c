package validation

import (
	"fmt"

	"github.com/iudanet/themeshop/internal/models"
)

// MaxLineItems ограничение шлюза на количество позиций в одной checkout-сессии
const MaxLineItems = 100

const (
	// MaxAmount - предел шлюза для суммы в минимальных единицах валюты
	MaxAmount int64 = 99_999_999
	// MaxQuantity - предел шлюза для количества в одной позиции
	MaxQuantity int64 = 999_999
)

// ValidateLineItems проверяет состав корзины перед созданием платежной сессии.
// Корзина не пустая, у каждой позиции есть название, положительные цена и количество,
// итоговая сумма больше нуля. Суммы ограничены MaxAmount, поэтому
// произведение цены на количество и итог не переполняют int64.
func ValidateLineItems(items []models.LineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: line items cannot be empty", ErrInvalid)
	}

	if len(items) > MaxLineItems {
		return fmt.Errorf("%w: too many line items (max %d)", ErrInvalid, MaxLineItems)
	}

	for i, item := range items {
		if item.Name == "" {
			return fmt.Errorf("%w: line item %d: name is required", ErrInvalid, i)
		}
		if item.UnitAmount <= 0 {
			return fmt.Errorf("%w: line item %d: amount must be positive", ErrInvalid, i)
		}
		if item.UnitAmount > MaxAmount {
			return fmt.Errorf("%w: line item %d: amount exceeds %d", ErrInvalid, i, MaxAmount)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: line item %d: quantity must be positive", ErrInvalid, i)
		}
		if item.Quantity > MaxQuantity {
			return fmt.Errorf("%w: line item %d: quantity exceeds %d", ErrInvalid, i, MaxQuantity)
		}
	}

	total := models.LineItemsTotal(items)
	if total <= 0 {
		return fmt.Errorf("%w: total amount must be positive", ErrInvalid)
	}
	if total > MaxAmount {
		return fmt.Errorf("%w: total amount exceeds %d", ErrInvalid, MaxAmount)
	}

	return nil
}
