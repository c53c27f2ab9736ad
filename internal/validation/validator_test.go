package validation

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	v := New()
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "empty", title: "", want: "Title is required"},
		{name: "whitespace only", title: "    ", want: "Title is required"},
		{name: "two characters", title: "ab", want: "Title must be between 3 and 100 characters"},
		{name: "two characters padded", title: "  ab  ", want: "Title must be between 3 and 100 characters"},
		{name: "too long", title: strings.Repeat("a", 101), want: "Title must be between 3 and 100 characters"},
		{name: "minimum", title: "abc"},
		{name: "maximum", title: strings.Repeat("a", 100)},
		{name: "multibyte counts runes", title: strings.Repeat("é", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(TaskInput{Title: tt.title})
			if tt.want == "" {
				if !res.Valid() {
					t.Fatalf("Validate(%q) = %v, want valid", tt.title, res.Errors)
				}
				return
			}
			if res.Valid() {
				t.Fatalf("Validate(%q) valid, want %q", tt.title, tt.want)
			}
			if got := res.Errors["title"]; got != tt.want {
				t.Fatalf("Errors[title] = %q, want %q", got, tt.want)
			}
			if len(res.Errors) != 1 {
				t.Fatalf("Errors = %v, want a single field", res.Errors)
			}
		})
	}
}

func TestNewRegistersTitleLength(t *testing.T) {
	v := New()
	sample := struct {
		Name string `validate:"titlelen"`
	}{Name: "  ab  "}
	if err := v.validate.Struct(sample); err == nil {
		t.Fatal("titlelen accepted a two character value")
	}
	sample.Name = "  abc  "
	if err := v.validate.Struct(sample); err != nil {
		t.Fatalf("titlelen rejected a valid value: %v", err)
	}
}
