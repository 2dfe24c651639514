package orders

import (
	"errors"
	"fmt"
)

// UnavailableItemError means a product in the cart no longer exists, was withdrawn, or moved
// to another farm between add-to-cart and checkout. The cart has to be re-priced without it.
type UnavailableItemError struct {
	ProductID int64
	FarmID    int64
}

func (e *UnavailableItemError) Error() string {
	return fmt.Sprintf("product %d from farm %d is no longer available", e.ProductID, e.FarmID)
}

// DuplicateOrderNumberError is returned by persistence when a generated order number already
// exists. Callers retry with a fresh number.
type DuplicateOrderNumberError struct {
	OrderNumber string
}

func (e *DuplicateOrderNumberError) Error() string {
	return fmt.Sprintf("order number %s already exists", e.OrderNumber)
}

func IsUnavailableItem(err error) bool {
	var ue *UnavailableItemError
	return errors.As(err, &ue)
}

func IsDuplicateOrderNumber(err error) bool {
	var de *DuplicateOrderNumberError
	return errors.As(err, &de)
}

type StatusTransitionError struct {
	From string
	To   string
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
}

func IsStatusTransition(err error) bool {
	var se *StatusTransitionError
	return errors.As(err, &se)
}
