package summarize

import "testing"

func TestParseBatchPlainArray(t *testing.T) {
	t.Parallel()

	raw := `[{"id": "a", "summary": "Users report export failures.", "key_points": ["export"], "sentiment": "negative"}]`

	entries, ok := parseBatch(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseBatchEmbeddedInProse(t *testing.T) {
	t.Parallel()

	raw := "Here is the summary you asked for:\n```json\n" +
		`[{"id": "a", "summary": "Something.", "key_points": [], "sentiment": "neutral"}]` +
		"\n```\nLet me know if you need more."

	entries, ok := parseBatch(raw)
	if !ok {
		t.Fatal("expected parse to succeed for embedded array")
	}
	if len(entries) != 1 || entries[0].Summary != "Something." {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseBatchMalformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"I could not process these posts.",
		`{"id": "a", "summary": "object, not array"}`,
		`[{"id": "a", "summary": }]`,
		`[]`,
		`[{"summary": "no id"}, {"id": "b", "summary": "  "}]`,
	}

	for _, raw := range cases {
		if _, ok := parseBatch(raw); ok {
			t.Fatalf("expected malformed tag for %q", raw)
		}
	}
}

func TestParseBatchDropsInvalidEntriesOnly(t *testing.T) {
	t.Parallel()

	raw := `[{"id": "", "summary": "orphan"}, {"id": "b", "summary": "Valid.", "sentiment": "mixed"}]`

	entries, ok := parseBatch(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if len(entries) != 1 || entries[0].ID != "b" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
