package errutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[CoreStatus]int{
		StatusValidationFailed: http.StatusBadRequest,
		StatusBadRequest:       http.StatusBadRequest,
		StatusUnauthorized:     http.StatusUnauthorized,
		StatusForbidden:        http.StatusForbidden,
		StatusNotFound:         http.StatusNotFound,
		StatusTooManyRequests:  http.StatusTooManyRequests,
		StatusInternal:         http.StatusInternalServerError,
		CoreStatus("WHATEVER"): http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestConstructorsKeepCause(t *testing.T) {
	cause := errors.New("record not found")
	err := NotFound("Licence non trouvée", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, StatusNotFound, StatusOf(err))
	require.Contains(t, err.Error(), "record not found")

	base, ok := As(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	require.Equal(t, "Licence non trouvée", base.Message)

	body := base.Body()
	require.Equal(t, false, body["success"])
	require.Equal(t, "Licence non trouvée", body["message"])
	require.NotContains(t, fmt.Sprint(body), "record not found")

	require.Equal(t, StatusInternal, StatusOf(errors.New("plain")))
}

func TestWithDetails(t *testing.T) {
	err := ValidationFailed("invalid", nil, WithDetails(Detail{Field: "machine_id", Message: "required"}))
	base, ok := As(err)
	require.True(t, ok)
	require.Nil(t, base.Err)
	require.Len(t, base.Body()["details"], 1)
}

func TestToGRPCError(t *testing.T) {
	require.NoError(t, ToGRPCError(nil))
	require.Equal(t, codes.PermissionDenied, status.Code(ToGRPCError(Forbidden("nope", nil))))
	require.Equal(t, codes.InvalidArgument, status.Code(ToGRPCError(ValidationFailed("bad", nil))))
	require.Equal(t, codes.Canceled, status.Code(ToGRPCError(context.Canceled)))
	require.Equal(t, codes.Internal, status.Code(ToGRPCError(errors.New("boom"))))

	st, _ := status.FromError(ToGRPCError(Internal("Erreur serveur", errors.New("dsn leaked"))))
	require.Equal(t, "Erreur serveur", st.Message())
}
