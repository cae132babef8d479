package clientip_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackway/internal/pkg/clientip"
)

func TestFromRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(clientip.FromRequest(c))
	})

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "x-forwarded-for public address",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:    "skips private hops in x-forwarded-for",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:    "prefers ipv4 over ipv6",
			headers: map[string]string{"X-Forwarded-For": "2001:db8::1, 198.51.100.7"},
			want:    "198.51.100.7",
		},
		{
			name:    "ipv6 when nothing else is public",
			headers: map[string]string{"X-Forwarded-For": "192.168.1.4, 2001:db8::1"},
			want:    "2001:db8::1",
		},
		{
			name:    "x-real-ip header",
			headers: map[string]string{"X-Real-IP": "198.51.100.7"},
			want:    "198.51.100.7",
		},
		{
			name:    "cf-connecting-ip header",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.42"},
			want:    "203.0.113.42",
		},
		{
			name:    "strips port from candidate",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9:4711"},
			want:    "203.0.113.9",
		},
		{
			name:    "unmaps 4-in-6 addresses",
			headers: map[string]string{"X-Forwarded-For": "::ffff:203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:    "all private falls back to socket address",
			headers: map[string]string{"X-Forwarded-For": "192.168.1.4, 127.0.0.1"},
			want:    "0.0.0.0",
		},
		{
			name:    "no headers falls back to socket address",
			headers: map[string]string{},
			want:    "0.0.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}
