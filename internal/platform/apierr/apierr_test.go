package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"explicit", NotFound("bill_not_found", errors.New("x")), http.StatusNotFound, "bill_not_found"},
		{"wrapped explicit", fmt.Errorf("outer: %w", Conflict("", ErrConflict)), http.StatusConflict, "fallback"},
		{"sentinel", fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound, "not_found"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "fallback"},
	}
	for _, tc := range cases {
		status, code := Resolve(tc.err, "fallback")
		if status != tc.wantStatus || code != tc.wantCode {
			t.Fatalf("%s: got (%d,%q) want (%d,%q)", tc.name, status, code, tc.wantStatus, tc.wantCode)
		}
	}
}
