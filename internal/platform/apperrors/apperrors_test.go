package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapsKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{E(KindInvalidInput, "period must be 12h, 24h, or weekly"), http.StatusBadRequest},
		{E(KindNotFound, "paper not found"), http.StatusNotFound},
		{E(KindUnavailable, "gateway unreachable"), http.StatusServiceUnavailable},
		{E(KindUnknown, ""), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestHTTPStatusUnwrapsWrappedErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("lookup article: %w", E(KindNotFound, "article not found"))
	if got := HTTPStatus(wrapped); got != http.StatusNotFound {
		t.Fatalf("HTTPStatus(wrapped) = %d, want %d", got, http.StatusNotFound)
	}
}

func TestErrorMessageFallsBackToKind(t *testing.T) {
	t.Parallel()

	if got := (Error{Kind: KindNotFound}).Error(); got != "not_found" {
		t.Fatalf("message = %q", got)
	}
	if got := E(KindInvalidInput, "q must be at least 2 characters").Error(); got != "q must be at least 2 characters" {
		t.Fatalf("message = %q", got)
	}
}
