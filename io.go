package relay

import (
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PublishRequest represents a request to publish a relay message.
//
// ClientID and Message come from the request body; APIKey and IdempotencyKey
// come from transport headers; RemoteAddr is filled by the transport layer
// for admission-control keying.
type PublishRequest struct {
	ClientID       string `json:"clientId"`
	Message        string `json:"message"`
	Meta           string `json:"meta,omitempty"` // JSON object, opaque to the engine
	APIKey         string `json:"-"`
	IdempotencyKey string `json:"-"`
	RemoteAddr     string `json:"-"`
}

// Validate checks the request against the publish input schema.
func (m PublishRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ClientID, validation.Required, validation.Length(1, 64)),
		validation.Field(&m.Message, validation.Required),
		validation.Field(&m.IdempotencyKey, validation.Length(1, 255)),
		validation.Field(&m.Meta, validation.By(validJSONObject)),
	)
}

// AdmissionKey returns the key the admission controller partitions by:
// the API key when present, otherwise the caller address.
func (m PublishRequest) AdmissionKey() string {
	if m.APIKey != "" {
		return m.APIKey
	}
	return m.RemoteAddr
}

// validJSONObject accepts an empty value or a well-formed JSON document.
func validJSONObject(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !json.Valid([]byte(s)) {
		return errors.New("must be valid JSON")
	}
	return nil
}

// RegisterClientRequest represents a request to register a new client.
type RegisterClientRequest struct {
	Name string `json:"name"`
}

// Validate checks the request against the client registration schema.
func (m RegisterClientRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Length(1, 100)),
	)
}
