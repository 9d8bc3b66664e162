package application

import (
	"errors"

	"github.com/oksasatya/tripdesk/internal/domain/entity"
)

// clientMessage is the text a client may see for err. Store failures are masked.
func clientMessage(err error) string {
	var ve *entity.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, entity.ErrDuplicateKey):
		return entity.ErrDuplicateKey.Error()
	case errors.Is(err, entity.ErrNotFound):
		return entity.ErrNotFound.Error()
	case errors.Is(err, ErrForbidden):
		return ErrForbidden.Error()
	case errors.Is(err, ErrUnauthenticated):
		return ErrUnauthenticated.Error()
	}
	return "internal error"
}
