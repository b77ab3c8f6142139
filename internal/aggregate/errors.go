package aggregate

import "errors"

var (
	ErrUserNotFound = errors.New("user analytics not found")

	ErrProductNotFound = errors.New("product analytics not found")

	ErrShopNotFound = errors.New("shop analytics not found")
)
