package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"title":"Chain rule","steps":["a","b"]}`, false},
		{"missing required", `{"title":"Chain rule"}`, true},
		{"empty steps", `{"title":"Chain rule","steps":[]}`, true},
		{"wrong type", `{"title":3,"steps":["a"]}`, true},
		{"extra field", `{"title":"t","steps":["a"],"x":1}`, true},
		{"not json", `title: chain rule`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(lessonSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *ErrInvalidResponse
				if !errors.As(err, &inv) {
					t.Fatalf("expected ErrInvalidResponse, got %T", err)
				}
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not json`)); err != nil {
		t.Fatalf("nil schema should skip validation, got %v", err)
	}
}

func TestCompileSchema_Cached(t *testing.T) {
	s := lessonSchema()
	a, err := compileSchema(s)
	if err != nil {
		t.Fatal(err)
	}
	b, err := compileSchema(s)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected cached schema instance")
	}
}
