package mapping

import (
	"context"
	"strings"
	"testing"
)

func validSchema() SemanticSchema {
	return SemanticSchema{
		AmountLocalCurrency: "Betrag in Hauswährung",
		DueDate:             "Nettofälligkeit",
		Assignment:          "Zuordnung",
		PostingDate:         "Buchungsdatum",
		DocumentType:        "Belegart",
		CurrencyColumn:      "Währung",
		CurrencySymbol:      "€",
	}
}

func testHeader() []string {
	return []string{"Zuordnung", "Belegart", "Buchungsdatum", "Nettofälligkeit", "Betrag in Hauswährung", "Währung"}
}

func TestSemanticSchemaValidate(t *testing.T) {
	schema := validSchema()
	if err := schema.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	schema.DueDate = " "
	err := schema.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "due_date") {
		t.Errorf("error %q does not name due_date", err)
	}
}

func TestSemanticSchemaColumnMap(t *testing.T) {
	schema := validSchema()
	m := schema.ColumnMap()

	if m.Amount != "Betrag in Hauswährung" {
		t.Errorf("Amount = %q", m.Amount)
	}
	if m.CustomerRef != "Zuordnung" {
		t.Errorf("CustomerRef = %q", m.CustomerRef)
	}
	if m.CurrencySymbol != "€" {
		t.Errorf("CurrencySymbol = %q", m.CurrencySymbol)
	}
}

func TestNormalizeCurrencySymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"€", "€"},
		{"EUR", "€"},
		{"eur", "€"},
		{"USD", "$"},
		{" GBP ", "£"},
		{"", ""},
		{"XYZ", "XYZ"},
	}
	for _, tt := range tests {
		if got := normalizeCurrencySymbol(tt.input); got != tt.want {
			t.Errorf("normalizeCurrencySymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStaticMapper(t *testing.T) {
	m := &StaticMapper{Schema: validSchema()}

	schema, err := m.MapColumns(context.Background(), testHeader(), nil)
	if err != nil {
		t.Fatalf("MapColumns() error = %v", err)
	}
	if schema.AmountLocalCurrency != "Betrag in Hauswährung" {
		t.Errorf("amount column = %q", schema.AmountLocalCurrency)
	}

	// Returned schema is a copy.
	schema.DueDate = "changed"
	if m.Schema.DueDate != "Nettofälligkeit" {
		t.Error("MapColumns leaked a reference to the internal schema")
	}
}

func TestStaticMapperRejectsUnknownColumn(t *testing.T) {
	schema := validSchema()
	schema.AmountLocalCurrency = "Nonexistent"
	m := &StaticMapper{Schema: schema}

	if _, err := m.MapColumns(context.Background(), testHeader(), nil); err == nil {
		t.Fatal("expected error for column missing from header")
	}
}

func TestCleanModelJSON(t *testing.T) {
	want := `{"amount_local_currency":"Betrag"}`

	tests := []struct {
		name  string
		input string
	}{
		{"plain", `{"amount_local_currency":"Betrag"}`},
		{"fenced", "```json\n{\"amount_local_currency\":\"Betrag\"}\n```"},
		{"bare fence", "```\n{\"amount_local_currency\":\"Betrag\"}\n```"},
		{"prose wrapped", "Here is the mapping:\n{\"amount_local_currency\":\"Betrag\"}\nHope that helps."},
		{"padded", "  \n{\"amount_local_currency\":\"Betrag\"}\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, want)
			}
		})
	}
}

func TestBuildMappingPrompt(t *testing.T) {
	prompt, err := buildMappingPrompt(testHeader(), map[string]any{"Währung": "EUR"})
	if err != nil {
		t.Fatalf("buildMappingPrompt() error = %v", err)
	}
	for _, want := range []string{"Nettofälligkeit", "EUR", "amount_local_currency"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if _, err := buildMappingPrompt(nil, nil); err == nil {
		t.Fatal("expected error for empty header")
	}
}
