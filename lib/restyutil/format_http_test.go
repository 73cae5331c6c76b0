package restyutil

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatHeadersRedactsCredentials(t *testing.T) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer hf_secrettoken")
	headers.Set("Cookie", "session=abc")
	headers.Set("Accept", "application/json")

	rendered := formatHeaders(headers)

	require.NotContains(t, rendered, "hf_secrettoken")
	require.NotContains(t, rendered, "session=abc")
	require.Contains(t, rendered, "Authorization: <redacted>")
	require.Contains(t, rendered, "Accept: application/json")
}

func TestFormatHeadersEmpty(t *testing.T) {
	rendered := formatHeaders(http.Header{})
	require.Equal(t, "", rendered)
}

func TestFormatHeadersNoTrailingNewline(t *testing.T) {
	headers := http.Header{}
	headers.Set("Accept", "text/html")
	require.False(t, strings.HasSuffix(formatHeaders(headers), "\n"))
}
