package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "No headers",
			headers: nil,
			want:    "unknown",
		},
		{
			name:    "Forwarded-For first hop",
			headers: map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1, 10.0.0.2"},
			want:    "203.0.113.7",
		},
		{
			name: "Forwarded-For wins over the others",
			headers: map[string]string{
				"X-Forwarded-For":  "203.0.113.7",
				"CF-Connecting-IP": "198.51.100.1",
				"X-Real-IP":        "192.0.2.1",
			},
			want: "203.0.113.7",
		},
		{
			name: "Cloudflare before Real-IP",
			headers: map[string]string{
				"CF-Connecting-IP": "198.51.100.1",
				"X-Real-IP":        "192.0.2.1",
			},
			want: "198.51.100.1",
		},
		{
			name:    "Real-IP",
			headers: map[string]string{"X-Real-IP": "192.0.2.1"},
			want:    "192.0.2.1",
		},
		{
			name: "Empty first hop falls through",
			headers: map[string]string{
				"X-Forwarded-For": " , 10.0.0.1",
				"X-Real-IP":       "192.0.2.1",
			},
			want: "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/visit", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestClientIP_IgnoresRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("POST", "/visit", nil)
	req.RemoteAddr = "127.0.0.1:4321"
	assert.Equal(t, UnknownIP, ClientIP(req))
}
