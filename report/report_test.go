package report

import "testing"

func TestDecodeReport(t *testing.T) {
	const body = `{"fluency":{"score":7,"comment":"good pace"},"vocabulary":{"score":5,"comment":"narrow range"},"grammar":{"score":8,"comment":"solid"},"overall":"keep going"}`

	tests := []struct {
		name  string
		reply string
	}{
		{"bare json", body},
		{"fenced", "```json\n" + body + "\n```"},
		{"fenced no language", "```\n" + body + "\n```"},
		{"surrounding whitespace", "\n  " + body + "  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := decodeReport(tt.reply)
			if err != nil {
				t.Fatalf("decodeReport: %v", err)
			}
			if r.Fluency.Score != 7 || r.Vocabulary.Score != 5 || r.Grammar.Score != 8 {
				t.Errorf("scores = %d/%d/%d, want 7/5/8",
					r.Fluency.Score, r.Vocabulary.Score, r.Grammar.Score)
			}
			if r.Overall != "keep going" {
				t.Errorf("overall = %q", r.Overall)
			}
		})
	}
}

func TestDecodeReport_Malformed(t *testing.T) {
	if _, err := decodeReport("I'd give this a solid 7 out of 10."); err == nil {
		t.Fatal("decodeReport accepted prose")
	}
}
