package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/orgdesk/orgdesk/internal/domain/apperr"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Code
	}{
		{
			name: "bad request",
			err:  apperr.BadRequest("cannot archive group with children"),
			want: apperr.CodeBadRequest,
		},
		{
			name: "not found",
			err:  apperr.NotFound("group not found"),
			want: apperr.CodeNotFound,
		},
		{
			name: "forbidden",
			err:  apperr.Forbidden("no access to this group tree"),
			want: apperr.CodeForbidden,
		},
		{
			name: "wrapped typed error",
			err:  fmt.Errorf("archive: %w", apperr.BadRequest("cannot archive group with children")),
			want: apperr.CodeBadRequest,
		},
		{
			name: "plain error classified as internal",
			err:  errors.New("connection reset"),
			want: apperr.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apperr.CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInternal_PreservesCause(t *testing.T) {
	cause := errors.New("write conflict")
	err := apperr.Internal("archive cascade failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if apperr.CodeOf(err) != apperr.CodeInternal {
		t.Errorf("CodeOf: got %q, want %q", apperr.CodeOf(err), apperr.CodeInternal)
	}
}

func TestMessageOf_HidesUnknownDetails(t *testing.T) {
	if msg := apperr.MessageOf(errors.New("dial tcp: refused")); msg != "internal server error" {
		t.Errorf("expected generic message for unknown error, got %q", msg)
	}
	if msg := apperr.MessageOf(apperr.BadRequest("cannot move group inside itself")); msg != "cannot move group inside itself" {
		t.Errorf("expected typed message preserved, got %q", msg)
	}
}
