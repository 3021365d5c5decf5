package httputil

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/model_router/internal/providers/providererr"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{providererr.New(providererr.KindAuth, "anthropic", "bad key"), http.StatusUnauthorized},
		{providererr.New(providererr.KindRateLimit, "bedrock", "throttled"), http.StatusTooManyRequests},
		{providererr.New(providererr.KindTransport, "deepinfra", "reset"), http.StatusBadGateway},
		{providererr.New(providererr.KindModelResolution, "openai-compatible", "no model"), http.StatusInternalServerError},
		{providererr.Normalize("vertex", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.status, StatusFor(tc.err), tc.err.Error())
	}
}

func TestProviderErrorBody(t *testing.T) {
	_, body := ProviderError(providererr.New(providererr.KindRateLimit, "openrouter", "slow down"))
	require.Equal(t, "rate_limit", body.Kind)
	require.Equal(t, "openrouter", body.Provider)
	require.Contains(t, body.Error, "slow down")
}
