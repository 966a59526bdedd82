package main

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"150", "$150.00"},
		{"1234.5", "$1,234.50"},
		{"-200", "-$200.00"},
		{"1000000.01", "$1,000,000.01"},
	}
	for _, tc := range cases {
		if got := formatMoney(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Fatalf("formatMoney(%s) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchResource(t *testing.T) {
	options := []namedResource{
		{ID: 1, Name: "Pistol"},
		{ID: 2, Name: "Shotgun"},
		{ID: 3, Name: "Getaway Car"},
	}
	cases := []struct {
		arg  string
		want int64
	}{
		{"2", 2},
		{"pistol", 1},
		{"shtgn", 2},
		{"getaway", 3},
		{"99", 99},
	}
	for _, tc := range cases {
		got, err := matchResource(tc.arg, options)
		if err != nil {
			t.Fatalf("matchResource(%q): %v", tc.arg, err)
		}
		if got.ID != tc.want {
			t.Fatalf("matchResource(%q) = %d want %d", tc.arg, got.ID, tc.want)
		}
	}
	if _, err := matchResource("zzz", options); err == nil {
		t.Fatalf("expected no match for zzz")
	}
	if _, err := matchResource("", options); err == nil {
		t.Fatalf("expected error for empty argument")
	}
}

func TestParsePositive(t *testing.T) {
	if v, err := parsePositive(" 12 ", "quantity"); err != nil || v != 12 {
		t.Fatalf("got %d, %v", v, err)
	}
	for _, bad := range []string{"0", "-3", "x"} {
		if _, err := parsePositive(bad, "quantity"); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
