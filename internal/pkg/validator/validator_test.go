package validator

import (
	"errors"
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"123e4567-e89b-12d3-a456-426614174000",
	}
	invalid := []string{
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"not-a-uuid",
		"",
	}
	for _, id := range valid {
		if !IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidUUID(id) {
			t.Errorf("IsValidUUID(%q) = true, want false", id)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2024-01-10", "2024-02-29"}
	invalid := []string{"2024-13-01", "2023-02-29", "10-01-2024", ""}
	for _, d := range valid {
		if _, ok := IsValidDate(d); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if _, ok := IsValidDate(d); ok {
			t.Errorf("IsValidDate(%q) = true, want false", d)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	if !IsInSlice("Sick", []string{"Casual", "Sick"}) {
		t.Error("IsInSlice should find Sick")
	}
	if IsInSlice("Annual", []string{"Casual", "Sick"}) {
		t.Error("IsInSlice should not find Annual")
	}
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 20},
		{3, 50, 3, 50},
		{2, 500, 2, 100},
	}
	for _, c := range cases {
		p, l := Paginate(c.page, c.limit)
		if p != c.wantPage || l != c.wantLimit {
			t.Errorf("Paginate(%d, %d) = (%d, %d), want (%d, %d)", c.page, c.limit, p, l, c.wantPage, c.wantLimit)
		}
	}
}

type sampleRule struct {
	Type        string  `json:"type" validate:"required,oneof=Casual Sick"`
	DaysAllowed float64 `json:"days_allowed" validate:"gte=0"`
}

type sampleRequest struct {
	Name     string       `json:"name" validate:"notblank"`
	Date     string       `json:"date" validate:"date"`
	Timezone string       `json:"timezone" validate:"omitempty,timezone"`
	Rules    []sampleRule `json:"rules" validate:"min=1,dive"`
}

func TestStruct(t *testing.T) {
	ok := sampleRequest{
		Name:     "Standard",
		Date:     "2024-01-10",
		Timezone: "Asia/Kolkata",
		Rules:    []sampleRule{{Type: "Casual", DaysAllowed: 10}},
	}
	if err := Struct(ok); err != nil {
		t.Fatalf("Struct(valid) returned %v", err)
	}

	bad := sampleRequest{
		Name:     "  ",
		Date:     "10/01/2024",
		Timezone: "Mars/Olympus",
		Rules:    []sampleRule{{Type: "Annual", DaysAllowed: -1}},
	}
	err := Struct(bad)

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Struct(invalid) returned %T, want ValidationErrors", err)
	}

	got := verrs.ToMap()
	want := map[string]string{
		"name":                  "is required",
		"date":                  "must be in YYYY-MM-DD format",
		"timezone":              "must be a valid IANA timezone",
		"rules[0].type":         "must be one of: Casual, Sick",
		"rules[0].days_allowed": "must be greater than or equal to 0",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("field %q = %q, want %q", field, got[field], msg)
		}
	}
}
