package rcl

import (
	"testing"
	"time"
)

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"  Projekt   ustawy\n\t o  zmianie ": "Projekt ustawy o zmianie",
		"refundacji\u200b leków\ufeff":     "refundacji leków",
		"soft\u00adhyphen\u00a0nbsp":       "softhyphen nbsp",
		"":                                 "",
	}
	for in, want := range cases {
		if got := NormalizeText(in); got != want {
			t.Fatalf("NormalizeText(%q): got=%q want=%q", in, got, want)
		}
	}
}

func TestNormalizeMinistry(t *testing.T) {
	cases := map[string]string{
		"MINISTER ZDROWIA":                              "Ministerstwo Zdrowia",
		"Minister Rodziny, Pracy i Polityki Społecznej": "Ministerstwo Rodziny, Pracy i Polityki Społecznej",
		"minister spraw zagranicznych":                  "Ministerstwo Spraw Zagranicznych",
		"Ministerstwo Finansów":                         "Ministerstwo Finansów",
		"Prezes Rady Ministrów":                         "Kancelaria Prezesa Rady Ministrów",
		"rządowe centrum legislacji":                    "Rządowe Centrum Legislacji",
		"  ":                                            "",
	}
	for in, want := range cases {
		if got := NormalizeMinistry(in); got != want {
			t.Fatalf("NormalizeMinistry(%q): got=%q want=%q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"05-03-2024", "05.03.2024", "2024-03-05", " 05.03.2024 r. "} {
		got, ok := ParseDate(in)
		if !ok || !got.Equal(want) {
			t.Fatalf("ParseDate(%q): got=%v ok=%v", in, got, ok)
		}
	}
	for _, in := range []string{"", "marzec 2024", "2024/03/05", "32-01-2024"} {
		if _, ok := ParseDate(in); ok {
			t.Fatalf("ParseDate(%q): expected failure", in)
		}
	}
}
