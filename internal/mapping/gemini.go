package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used for semantic mapping when the
// caller does not pick one.
const DefaultModelName = "gemini-2.5-flash"

const mappingSystemPrompt = "You are an expert at analyzing Excel spreadsheets and identifying column structures.\n\n" +
	"Your task is to examine the column headers of a German accounts receivable spreadsheet " +
	"and map them to semantic English keys. You must also identify the currency being used.\n\n" +
	"Required mappings:\n" +
	"1. \"amount_local_currency\": the column with monetary amounts in local currency " +
	"(common German names: \"Betrag in Hauswährung\", \"Betrag in Belegwährung\", \"Betrag\")\n" +
	"2. \"due_date\": the column with the net due date " +
	"(\"Nettofälligkeit\", \"Fälligkeitsdatum\", \"Fälligkeit\")\n" +
	"3. \"assignment\": the column with assignment or reference information " +
	"(\"Zuordnung\", \"Referenz\", \"Zuordn.\")\n" +
	"4. \"posting_date\": the column with the posting or booking date " +
	"(\"Buchungsdatum\", \"Belegdatum\", \"Datum\")\n" +
	"5. \"document_type\": the column with the document type " +
	"(\"Belegart\", \"Dokumenttyp\", \"Art\")\n" +
	"6. \"currency_column\": the column with the currency code " +
	"(\"Währung\", \"Wahrung\", \"Currency\", \"Wäh.\")\n" +
	"7. \"currency_symbol\": the symbol for the currency code found in the sample row " +
	"(EUR -> €, USD -> $, GBP -> £, CHF -> Fr, JPY -> ¥)\n\n" +
	"Rules:\n" +
	"- Column names must match EXACTLY as they appear in the header, case-sensitive.\n" +
	"- If a column is ambiguous, choose the most likely match for accounting data.\n" +
	"- Output STRICT JSON only: a single object with exactly the seven keys above.\n" +
	"- Do NOT wrap the response in code fences.\n" +
	"- Do NOT use ```json or any Markdown.\n" +
	"- Output must begin with \"{\" and end with \"}\".\n"

// GeminiMapper asks Gemini to resolve the semantic columns. The client is
// created per call from ambient credentials.
type GeminiMapper struct {
	// Model overrides DefaultModelName when set.
	Model string
}

func (m *GeminiMapper) MapColumns(ctx context.Context, header []string, sampleRow map[string]any) (*SemanticSchema, error) {
	model := m.Model
	if model == "" {
		model = DefaultModelName
	}

	prompt, err := buildMappingPrompt(header, sampleRow)
	if err != nil {
		return nil, fmt.Errorf("MapColumns: build prompt: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("MapColumns: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("MapColumns: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("MapColumns: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var schema SemanticSchema
	if err := json.Unmarshal([]byte(clean), &schema); err != nil {
		return nil, fmt.Errorf("MapColumns: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("MapColumns: %w", err)
	}

	return &schema, nil
}

func buildMappingPrompt(header []string, sampleRow map[string]any) (string, error) {
	if len(header) == 0 {
		return "", fmt.Errorf("buildMappingPrompt: empty header")
	}

	var b strings.Builder
	b.WriteString(mappingSystemPrompt)
	b.WriteString("\nColumn headers:\n")
	for _, col := range header {
		fmt.Fprintf(&b, "- %q\n", col)
	}

	if len(sampleRow) > 0 {
		sample, err := json.Marshal(sampleRow)
		if err != nil {
			return "", fmt.Errorf("buildMappingPrompt: marshal sample row: %w", err)
		}
		b.WriteString("\nSample row (to identify the currency):\n")
		b.Write(sample)
		b.WriteString("\n")
	}

	return b.String(), nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost object if the model added prose around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
