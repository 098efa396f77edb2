// Package errors provides sentinel errors for catalog and cart operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrDuplicateProduct = errors.New("duplicate product id")
var ErrInvalidCatalog = errors.New("invalid catalog")

var ErrCartNotFound = errors.New("cart not found")
var ErrEmptyCart = errors.New("cart is empty")

var ErrUnknownStorageDriver = errors.New("unknown storage driver")
var ErrStorageUnavailable = errors.New("cart storage unavailable")
var ErrInvalidQuery = errors.New("invalid listing query")
