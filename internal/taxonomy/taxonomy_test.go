package taxonomy

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  Category
		ok    bool
	}{
		{"exact lower", "financing terrorism", FinancingTerrorism, true},
		{"mixed case", "Financing Terrorism", FinancingTerrorism, true},
		{"upper case", "RECRUITMENT", Recruitment, true},
		{"slash label", "glorification/promotion", GlorificationPromotion, true},
		{"slash label title", "Glorification/Promotion", GlorificationPromotion, true},
		{"threat label", "direct threat/incitement", DirectThreatIncitement, true},
		{"account label", "Terrorist Account", TerroristAccount, true},
		{"none", "none", None, true},
		{"none upper", "None", None, true},
		{"whitespace", "  recruitment  ", Recruitment, true},
		{"unknown", "unsure", None, false},
		{"empty", "", None, false},
		{"partial", "financing", None, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.label)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Parse(%q) = (%v, %v), want (%v, %v)", tt.label, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := FinancingTerrorism.String(); got != "financing terrorism" {
		t.Errorf("FinancingTerrorism.String() = %q", got)
	}
	if got := None.String(); got != "none" {
		t.Errorf("None.String() = %q", got)
	}
	if got := Category(99).String(); got != "none" {
		t.Errorf("invalid category String() = %q, want %q", got, "none")
	}
}

func TestAllOrderAndRoundTrip(t *testing.T) {
	all := All()
	want := []Category{
		GlorificationPromotion,
		TerroristAccount,
		Recruitment,
		DirectThreatIncitement,
		FinancingTerrorism,
	}
	if len(all) != len(want) {
		t.Fatalf("All() returned %d categories, want %d", len(all), len(want))
	}
	for i, c := range all {
		if c != want[i] {
			t.Errorf("All()[%d] = %v, want %v", i, c, want[i])
		}
		got, ok := Parse(c.String())
		if !ok || got != c {
			t.Errorf("Parse(%v.String()) = (%v, %v), want (%v, true)", c, got, ok, c)
		}
	}
}
