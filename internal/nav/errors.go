package nav

import (
	"context"
	"errors"
	"net/http"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/internal/auth"
	sim "github.com/signalsfoundry/astrogator/internal/sim/state"
)

var (
	// ErrForbidden is returned when a user addresses a spacecraft they do not
	// own or a privileged-only view.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned when a user exceeds the burn command rate.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidRequest is a package-level sentinel for malformed input.
	ErrInvalidRequest = errors.New("invalid request")
)

// ToHTTPStatus maps service errors onto HTTP status codes.
func ToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, sim.ErrInsufficientFuel),
		errors.Is(err, sim.ErrInvalidBurn),
		errors.Is(err, ephem.ErrInvalidTimeFormat):
		return http.StatusBadRequest

	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, sim.ErrSpacecraftNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests

	case errors.Is(err, ephem.ErrEphemerisUnavailable):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
