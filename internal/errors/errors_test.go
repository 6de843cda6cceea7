package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/victornm/bandscore/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"plain error is internal": {
			err:      stderrors.New("boom"),
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
		"wrapped not found": {
			err:      fmt.Errorf("get: %w", errors.NotFound("test not found")),
			wantCode: errors.CodeNotFound,
			wantHTTP: http.StatusNotFound,
		},
		"invalid argument": {
			err:      errors.InvalidArgument("bad %s", "input"),
			wantCode: errors.CodeInvalidArgument,
			wantHTTP: http.StatusBadRequest,
		},
		"unavailable": {
			err:      fmt.Errorf("stats: %w", errors.Unavailable(stderrors.New("dial tcp: refused"), "redis down")),
			wantCode: errors.CodeUnavailable,
			wantHTTP: http.StatusServiceUnavailable,
		},
		"aborted": {
			err:      errors.New(errors.CodeAborted),
			wantCode: errors.CodeAborted,
			wantHTTP: http.StatusConflict,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := errors.Convert(tt.err)
			require.Equal(t, tt.wantCode, e.Code)
			require.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
			require.True(t, errors.HasCode(e, tt.wantCode))
			require.Equal(t, codes.Code(tt.wantCode), status.Convert(e).Code())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := errors.New(errors.CodeUnavailable, errors.WithMessagef("redis down"), errors.WithCause(cause))

	require.ErrorIs(t, err, cause)
	require.Equal(t, "redis down", err.Message)
	require.Contains(t, err.Error(), "connection reset")
}
