package domain

import (
	"bytes"
	"encoding/json"
)

// Subscriber is a registered notification recipient. Both fields are
// required on the wire; the URL is where notifications get POSTed.
type Subscriber struct {
	URL  string `json:"url"  validate:"required,http_url"`
	Name string `json:"name" validate:"required"`
}

// NewSubscriber never fails. URL checks happen at subscribe time.
func NewSubscriber(url, name string) Subscriber {
	return Subscriber{URL: url, Name: name}
}

// Clone returns an independent copy.
func (s Subscriber) Clone() Subscriber {
	return Subscriber{URL: s.URL, Name: s.Name}
}

// EncodeSubscriber renders s as {"url":...,"name":...}.
func EncodeSubscriber(s Subscriber) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSubscriber parses a subscriber document. Any mismatch with the
// expected shape, including malformed JSON, yields a *SchemaError.
func DecodeSubscriber(data []byte) (Subscriber, error) {
	var s Subscriber
	if err := s.UnmarshalJSON(data); err != nil {
		return Subscriber{}, err
	}
	return s, nil
}

func (s *Subscriber) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &SchemaError{Reason: "expected a JSON object", Cause: err}
	}
	if fields == nil {
		// literal null
		return &SchemaError{Reason: "expected a JSON object"}
	}

	url, err := requiredString(fields, "url")
	if err != nil {
		return err
	}
	name, err := requiredString(fields, "name")
	if err != nil {
		return err
	}

	s.URL = url
	s.Name = name
	return nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", &SchemaError{Field: key, Reason: "is missing"}
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", &SchemaError{Field: key, Reason: "must be a string, got null"}
	}

	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", &SchemaError{Field: key, Reason: "must be a string", Cause: err}
	}
	return v, nil
}
