package nav

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/signalsfoundry/astrogator/ephem"
	"github.com/signalsfoundry/astrogator/internal/auth"
	sim "github.com/signalsfoundry/astrogator/internal/sim/state"
)

func TestToHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "nil", err: nil, code: http.StatusOK},
		{name: "invalid request", err: fmt.Errorf("%w: bad body", ErrInvalidRequest), code: http.StatusBadRequest},
		{name: "insufficient fuel", err: fmt.Errorf("burn: %w", sim.ErrInsufficientFuel), code: http.StatusBadRequest},
		{name: "invalid burn", err: sim.ErrInvalidBurn, code: http.StatusBadRequest},
		{name: "time format", err: ephem.ErrInvalidTimeFormat, code: http.StatusBadRequest},
		{name: "unauthorized", err: auth.ErrUnauthorized, code: http.StatusUnauthorized},
		{name: "forbidden", err: ErrForbidden, code: http.StatusForbidden},
		{name: "not found", err: fmt.Errorf("%w: %q", sim.ErrSpacecraftNotFound, "x"), code: http.StatusNotFound},
		{name: "rate limited", err: ErrRateLimited, code: http.StatusTooManyRequests},
		{name: "ephemeris", err: ephem.ErrEphemerisUnavailable, code: http.StatusServiceUnavailable},
		{name: "deadline", err: context.DeadlineExceeded, code: http.StatusGatewayTimeout},
		{name: "fallback", err: errors.New("boom"), code: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ToHTTPStatus(tc.err); got != tc.code {
				t.Fatalf("ToHTTPStatus(%v) = %d, want %d", tc.err, got, tc.code)
			}
		})
	}
}
