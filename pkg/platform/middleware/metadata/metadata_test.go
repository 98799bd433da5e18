package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remote: "10.0.0.2:1234", want: "198.51.100.4"},
		{name: "remote ipv4", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote ipv6", remote: "[::1]:5555", want: "::1"},
		{name: "remote without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var got string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientIP(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:80"
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.9", got)
}
