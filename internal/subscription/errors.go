package subscription

import (
	"errors"
	"fmt"

	"github.com/safar/farm-market/internal/models"
)

var ErrSkipLimitExceeded = errors.New("skip limit exceeded for this billing cycle")

type SkipLimitError struct {
	Cap int
}

func (e *SkipLimitError) Error() string {
	return fmt.Sprintf("%s (cap %d)", ErrSkipLimitExceeded.Error(), e.Cap)
}

func (e *SkipLimitError) Unwrap() error {
	return ErrSkipLimitExceeded
}

// TransitionError reports a lifecycle action that is not allowed from the current status.
type TransitionError struct {
	Action string
	From   models.SubscriptionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a subscription that is %s", e.Action, e.From)
}

func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
