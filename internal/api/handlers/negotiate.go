package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/feedqueue-api/internal/codec"
)

// Scalar fields are exchanged either as raw text or as a JSON value.
const (
	mimeJSON = fiber.MIMEApplicationJSON
	mimeText = fiber.MIMETextPlain
)

// Negotiator reads and writes single scalar values according to the
// request's Accept and Content-Type headers.
type Negotiator struct {
	codec *codec.Codec
}

func NewNegotiator(c *codec.Codec) *Negotiator {
	return &Negotiator{codec: c}
}

// responseType returns the representation the caller accepts. A missing
// Accept header means JSON.
func (n *Negotiator) responseType(c *fiber.Ctx) (string, error) {
	if c.Get(fiber.HeaderAccept) == "" {
		return mimeJSON, nil
	}
	switch c.Accepts(mimeJSON, mimeText) {
	case mimeJSON:
		return mimeJSON, nil
	case mimeText:
		return mimeText, nil
	}
	return "", fiber.ErrNotAcceptable
}

// Check fails fast with 406 before any work is done for a GET.
func (n *Negotiator) Check(c *fiber.Ctx) error {
	_, err := n.responseType(c)
	return err
}

// SendScalar writes value, which must be nil, a string, a bool or a number.
func (n *Negotiator) SendScalar(c *fiber.Ctx, value any) error {
	contentType, err := n.responseType(c)
	if err != nil {
		return err
	}

	if contentType == mimeText {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(scalarText(value))
	}

	body, err := n.codec.Marshal(value)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return c.Send(body)
}

// SendString writes an optional string scalar.
func (n *Negotiator) SendString(c *fiber.Ctx, value *string) error {
	if value == nil {
		return n.SendScalar(c, nil)
	}
	return n.SendScalar(c, *value)
}

// ReadScalar reads the request body as a single value. A JSON null or an
// empty JSON body yields nil; a text body is taken verbatim.
func (n *Negotiator) ReadScalar(c *fiber.Ctx) (*string, error) {
	mediaType := mimeJSON
	if raw := c.Get(fiber.HeaderContentType); raw != "" {
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			return nil, fiber.ErrUnsupportedMediaType
		}
		mediaType = parsed
	}

	body := c.Body()
	switch mediaType {
	case mimeText:
		value := string(body)
		return &value, nil
	case mimeJSON:
		if len(bytes.TrimSpace(body)) == 0 {
			return nil, nil
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err != nil {
			return nil, malformedBody()
		}
		switch v := decoded.(type) {
		case nil:
			return nil, nil
		case string:
			return &v, nil
		case bool, json.Number:
			value := fmt.Sprint(v)
			return &value, nil
		}
		return nil, fiber.NewError(fiber.StatusBadRequest, "expected a scalar value")
	}
	return nil, fiber.ErrUnsupportedMediaType
}

// ReadBool reads a boolean scalar.
func (n *Negotiator) ReadBool(c *fiber.Ctx) (bool, error) {
	raw, err := n.ReadScalar(c)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, fiber.NewError(fiber.StatusBadRequest, "expected true or false")
	}
	value, err := strconv.ParseBool(*raw)
	if err != nil {
		return false, fiber.NewError(fiber.StatusBadRequest, "expected true or false")
	}
	return value, nil
}

func scalarText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	}
	return fmt.Sprint(value)
}
