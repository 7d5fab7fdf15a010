package zack

import "testing"

func TestRouter(t *testing.T) {
	r := NewRouter("root")
	if r.Pop() {
		t.Fatal("popped the root view")
	}

	r.Push("list")
	r.Push("alert")
	if got := r.Peek(); got != "alert" {
		t.Fatalf("Peek() = %q, want alert", got)
	}

	r.Replace("other alert")
	if got := r.Views(); len(got) != 3 || got[2] != "other alert" {
		t.Fatalf("Views() = %v", got)
	}

	if !r.Pop() || !r.Pop() {
		t.Fatal("cannot pop pushed views")
	}
	if r.Len() != 1 || r.Peek() != "root" {
		t.Fatalf("stack = %v, want [root]", r.Views())
	}

	r.Replace("new root")
	if r.Peek() != "new root" {
		t.Fatalf("Peek() = %q, want new root", r.Peek())
	}
}
