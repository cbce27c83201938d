package rag

import (
	"math"
	"testing"
)

func TestLexicalScoreBounds(t *testing.T) {
	cases := []struct{ query, text string }{
		{"refund policy", "Our refund policy lasts 30 days."},
		{"unrelated gibberish", "Our refund policy lasts 30 days."},
		{"refund", "refund refund refund refund"},
		{"", "anything"},
		{"the of and", "anything"},
	}
	for _, c := range cases {
		score := LexicalScore(c.query, c.text)
		if score < 0 || score > 1 {
			t.Errorf("LexicalScore(%q, %q) = %f, out of [0,1]", c.query, c.text, score)
		}
	}
}

func TestLexicalScoreStopwordOnlyQuery(t *testing.T) {
	if score := LexicalScore("the of and is", "the of and is everywhere"); score != 0 {
		t.Errorf("stopword-only query should score 0, got %f", score)
	}
}

func TestLexicalScoreEmptyInputs(t *testing.T) {
	if score := LexicalScore("", "some text"); score != 0 {
		t.Errorf("empty query should score 0, got %f", score)
	}
	if score := LexicalScore("refund policy", ""); score != 0 {
		t.Errorf("empty text should score 0, got %f", score)
	}
}

func TestLexicalScoreTokenOverlap(t *testing.T) {
	// Significant tokens: what, acme, refund, policy. Three appear in the
	// text, so the score is 3/4.
	score := LexicalScore("What is the Acme refund policy", "Acme refund policy lasts thirty days")
	if math.Abs(score-0.75) > 1e-9 {
		t.Errorf("expected 0.75, got %f", score)
	}
}

func TestLexicalScoreCaseInsensitive(t *testing.T) {
	lower := LexicalScore("refund policy", "REFUND POLICY DOCUMENT")
	upper := LexicalScore("REFUND POLICY", "refund policy document")
	if lower != upper {
		t.Errorf("case should not matter: %f vs %f", lower, upper)
	}
	if lower == 0 {
		t.Error("expected a positive score for a full match")
	}
}

func TestLexicalScoreVerbatimMatchClampsToOne(t *testing.T) {
	if score := LexicalScore("refund policy", "see the refund policy section"); score != 1.0 {
		t.Errorf("verbatim query should clamp to 1.0, got %f", score)
	}
}
