package domain

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   Domain
		wantOk bool
	}{
		{"exact short name", "pricing", Pricing, true},
		{"exact key", "regulator-operations", RegulatorOperations, true},
		{"short inside sentence", "the best index is website", ProductWebsite, true},
		{"answer is prefix of short name", "help", HelpGuides, true},
		{"uppercase with whitespace", "  HELPGUIDE \n", HelpGuides, true},
		{"regulator alias", "regulator", RegulatorOperations, true},
		{"unknown answer", "weather-forecast", HelpGuides, false},
		{"empty answer", "", HelpGuides, false},
		{"whitespace only", "   ", HelpGuides, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.raw)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestParseTieBreakOrder(t *testing.T) {
	// When the judge rambles and names several domains, the first
	// domain in enum order must win deterministically.
	got, ok := Parse("could be pricing or website")
	if !ok {
		t.Fatal("expected a match")
	}
	if got != Pricing {
		t.Errorf("expected Pricing to win tie-break, got %v", got)
	}
}

func TestDefaultIsFirstInOrder(t *testing.T) {
	all := All()
	if len(all) == 0 || all[0] != Default() {
		t.Errorf("default domain must be first in enumeration order")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	for _, d := range All() {
		got, ok := Parse(d.Key())
		if !ok || got != d {
			t.Errorf("Parse(Key %q) = (%v, %v), want (%v, true)", d.Key(), got, ok, d)
		}
	}
}
