package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 1, true},
		{"1.234.567", 1234567, true},
		{"$1.234.567", 1234567, true},
		{"$ 12.500", 12500, true},
		{"12.500", 12500, true},
		{"1234567", 1234567, true},
		{"1.234,5", 1235, true}, // half away from zero
		{"99,4", 99, true},
		{"1234.4", 1234, true},
		{" 2500 ", 2500, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,2,3", 0, false},
		{"", 0, false},
		{"$", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Amount != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Amount, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %d", tc.in, got.Amount)
		}
	}
}

func TestParseAmountNegative(t *testing.T) {
	if _, err := ParseAmount("-500"); err != ErrNegativeAmount {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[int64]string{
		0:             "0",
		7:             "7",
		999:           "999",
		1000:          "1.000",
		1234567:       "1.234.567",
		-1500:         "-1.500",
		100000000:     "100.000.000",
		math.MinInt64: "-9.223.372.036.854.775.808",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := FormatCurrency(Money{Amount: 1234567}); got != "$1.234.567" {
		t.Fatalf("got %q", got)
	}
	if got := FormatCurrency(Money{Amount: -500}); got != "-$500" {
		t.Fatalf("got %q", got)
	}
	if got := FormatCurrency(Money{}); got != "$0" {
		t.Fatalf("got %q", got)
	}
}

func TestFromDecimalRounding(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"10.5", 11},
		{"10.49", 10},
		{"-10.5", -11},
		{"250000", 250000},
	}
	for _, tc := range cases {
		got := FromDecimal(decimal.RequireFromString(tc.in))
		if got.Amount != tc.want {
			t.Fatalf("FromDecimal(%s) = %d, want %d", tc.in, got.Amount, tc.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 1500.6, "b": "2000", "c": null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Amount != 1501 || v.B.Amount != 2000 || v.C.Amount != 0 {
		t.Fatalf("unexpected values %+v", v)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":1501,"b":2000,"c":0}` {
		t.Fatalf("unexpected json %s", out)
	}
}
