package orders

import "errors"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrTerminalOrder   = errors.New("order is in a terminal status")
	ErrDuplicateNumber = errors.New("order number already taken")
)
