package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoApp reads a scalar and writes it back.
func echoApp() *fiber.App {
	n := NewNegotiator(codec.New())
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Put("/", func(c *fiber.Ctx) error {
		value, err := n.ReadScalar(c)
		if err != nil {
			return err
		}
		return n.SendString(c, value)
	})
	return app
}

func TestReadScalar(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		want        string
	}{
		{"json string", fiber.MIMEApplicationJSON, `"hello"`, fiber.StatusOK, `"hello"`},
		{"json null", fiber.MIMEApplicationJSON, `null`, fiber.StatusOK, `null`},
		{"empty body", fiber.MIMEApplicationJSON, ``, fiber.StatusOK, `null`},
		{"json number", fiber.MIMEApplicationJSON, `42`, fiber.StatusOK, `"42"`},
		{"json object", fiber.MIMEApplicationJSON, `{"a":1}`, fiber.StatusBadRequest, ""},
		{"malformed json", fiber.MIMEApplicationJSON, `"open`, fiber.StatusBadRequest, ""},
		{"plain text", fiber.MIMETextPlainCharsetUTF8, `raw "text"`, fiber.StatusOK, `"raw \"text\""`},
		{"missing content type", "", `"hello"`, fiber.StatusOK, `"hello"`},
		{"xml", fiber.MIMEApplicationXML, `<a/>`, fiber.StatusUnsupportedMediaType, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set(fiber.HeaderContentType, tc.contentType)
			}
			resp, err := echoApp().Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.want != "" {
				raw, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tc.want, string(raw))
			}
		})
	}
}

func TestSendScalarTextPlain(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader("line"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
	req.Header.Set(fiber.HeaderAccept, "text/plain;q=0.9, application/xml")

	resp, err := echoApp().Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMETextPlainCharsetUTF8, resp.Header.Get(fiber.HeaderContentType))
}
