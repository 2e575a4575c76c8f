package domain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mr-tron/base58"
)

// ErrMalformedEvent is returned for envelopes that fail validation.
var ErrMalformedEvent = errors.New("malformed event")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("solana_address", func(fl validator.FieldLevel) bool {
			return IsSolanaAddress(fl.Field().String())
		})
	})
	return validate
}

// IsSolanaAddress reports whether s is a base58-encoded 32-byte public key.
func IsSolanaAddress(s string) bool {
	if s == "" {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}

// Validate checks the envelope kind, that the matching payload is present and well formed.
// Errors wrap ErrMalformedEvent.
func (e *EventEnvelope) Validate() error {
	v := validatorInstance()
	if err := v.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var payload any
	switch e.Kind {
	case EventKindCreate:
		if e.Create != nil {
			payload = e.Create
		}
	case EventKindTrade:
		if e.Trade != nil {
			payload = e.Trade
		}
	case EventKindComplete:
		if e.Complete != nil {
			payload = e.Complete
		}
	}
	if payload == nil {
		return fmt.Errorf("%w: missing %s payload", ErrMalformedEvent, e.Kind)
	}

	if err := v.Struct(payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedEvent, e.Kind, err)
	}
	return nil
}
