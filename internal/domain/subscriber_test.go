package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSubscriber_RoundTrip(t *testing.T) {
	tests := []Subscriber{
		{URL: "http://example.com/cb", Name: "alice"},
		{URL: "https://hooks.example.org/a?b=c&d=e", Name: "Bob \"the builder\""},
		{URL: "", Name: ""},
		{URL: "http://localhost:9090/webhook/success", Name: "café 日本語"},
	}

	for _, want := range tests {
		data, err := EncodeSubscriber(want)
		if err != nil {
			t.Fatalf("encode %+v: %v", want, err)
		}

		got, err := DecodeSubscriber(data)
		if err != nil {
			t.Fatalf("decode %s: %v", data, err)
		}
		if got != want {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func TestSubscriber_EncodeExample(t *testing.T) {
	data, err := EncodeSubscriber(NewSubscriber("http://example.com/cb", "alice"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := `{"url":"http://example.com/cb","name":"alice"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestSubscriber_DecodeEitherFieldOrder(t *testing.T) {
	got, err := DecodeSubscriber([]byte(`{"name":"alice","url":"http://example.com/cb"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.URL != "http://example.com/cb" || got.Name != "alice" {
		t.Errorf("unexpected subscriber %+v", got)
	}
}

func TestSubscriber_DecodeIgnoresUnknownKeys(t *testing.T) {
	got, err := DecodeSubscriber([]byte(`{"url":"http://a","name":"a","extra":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.URL != "http://a" || got.Name != "a" {
		t.Errorf("unexpected subscriber %+v", got)
	}
}

func TestSubscriber_DecodeSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{name: "missing url", input: `{"name":"a"}`, field: "url"},
		{name: "missing name", input: `{"url":"http://a"}`, field: "name"},
		{name: "url wrong type", input: `{"url":123,"name":"a"}`, field: "url"},
		{name: "name wrong type", input: `{"url":"http://a","name":["a"]}`, field: "name"},
		{name: "null url", input: `{"url":null,"name":"a"}`, field: "url"},
		{name: "empty object", input: `{}`, field: "url"},
		{name: "array document", input: `[1,2]`, field: ""},
		{name: "null document", input: `null`, field: ""},
		{name: "malformed", input: `{"url":`, field: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSubscriber([]byte(tt.input))
			if err == nil {
				t.Fatal("expected an error")
			}

			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected *SchemaError, got %T: %v", err, err)
			}
			if schemaErr.Field != tt.field {
				t.Errorf("field = %q, want %q", schemaErr.Field, tt.field)
			}
			if !errors.Is(err, &SchemaError{}) {
				t.Error("errors.Is should match any *SchemaError")
			}
		})
	}
}

func TestSubscriber_StdlibUnmarshalUsesSchema(t *testing.T) {
	var payload struct {
		Subscriber Subscriber `json:"subscriber"`
	}

	err := json.Unmarshal([]byte(`{"subscriber":{"url":"http://a"}}`), &payload)

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError from nested decode, got %v", err)
	}
	if schemaErr.Field != "name" {
		t.Errorf("field = %q, want %q", schemaErr.Field, "name")
	}
}

func TestSubscriber_CloneIsIndependent(t *testing.T) {
	original := NewSubscriber("http://example.com/cb", "alice")
	clone := original.Clone()

	if clone != original {
		t.Fatalf("clone %+v differs from original %+v", clone, original)
	}

	clone.Name = "bob"
	clone.URL = "http://other"
	if original.Name != "alice" || original.URL != "http://example.com/cb" {
		t.Errorf("mutating the clone changed the original: %+v", original)
	}
}

func TestSchemaError_Message(t *testing.T) {
	err := &SchemaError{Field: "url", Reason: "is missing"}
	if got := err.Error(); got != "schema error: field 'url' is missing" {
		t.Errorf("unexpected message %q", got)
	}
}
