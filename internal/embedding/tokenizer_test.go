package embedding

import (
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("expected CLS %d, got %d", clsTokenID, ids[0])
	}
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP at 3, got %d", ids[3])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask: %v", attn)
	}
}

func TestSimpleTokenizer_truncates(t *testing.T) {
	ids, _, _ := (&SimpleTokenizer{}).Tokenize("a b c d e f", 4)
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP in last slot, got %v", ids)
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("a long string that would overflow a naive polynomial hash") < 0 {
		t.Error("hash should be non-negative")
	}
}
