package bom

import "errors"

var (
	ErrUnknownSubject  = errors.New("subject is neither a composite nor a raw item")
	ErrMissingBusiness = errors.New("business id is required")
	ErrInvalidQuantity = errors.New("requested quantity must be a finite number >= 0")
)
