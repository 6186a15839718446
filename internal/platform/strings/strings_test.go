package strings

import "testing"

func TestIfEmpty(t *testing.T) {
	def := []string{"localhost:9092"}
	if got := IfEmpty(nil, def); len(got) != 1 || got[0] != "localhost:9092" {
		t.Fatalf("IfEmpty(nil) = %v", got)
	}
	in := []string{"b1"}
	if got := IfEmpty(in, def); len(got) != 1 || got[0] != "b1" {
		t.Fatalf("IfEmpty(in) = %v", got)
	}
}

func TestBlank(t *testing.T) {
	if !Blank("") || !Blank("   \t\n") {
		t.Fatalf("Blank should hold for empty and whitespace")
	}
	if Blank(" x ") {
		t.Fatalf("Blank should not hold for content")
	}
}

func TestPtrAndDeref(t *testing.T) {
	if Ptr("") != nil {
		t.Fatalf("Ptr(\"\") should be nil")
	}
	p := Ptr("lease")
	if p == nil || *p != "lease" {
		t.Fatalf("Ptr = %v", p)
	}
	if Deref(nil) != "" {
		t.Fatalf("Deref(nil) should be empty")
	}
	if Deref(p) != "lease" {
		t.Fatalf("Deref = %q", Deref(p))
	}
}
