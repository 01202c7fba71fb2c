package sandbox

import "testing"

func TestHashingSandbox_IsDeterministic(t *testing.T) {
	s := NewHashingSandbox()

	a := s.SandboxFileFor("pkg/service/handler.go")
	b := s.SandboxFileFor("pkg/service/handler.go")

	if a != b {
		t.Errorf("SandboxFileFor is not deterministic: %q != %q", a, b)
	}
}

func TestHashingSandbox_DifferentFilesDifferentNames(t *testing.T) {
	s := NewHashingSandbox()

	a := s.SandboxFileFor("pkg/service/handler.go")
	b := s.SandboxFileFor("pkg/service/other.go")

	if a == b {
		t.Errorf("SandboxFileFor produced the same name for two different files: %q", a)
	}
}

func TestHashingSandbox_PreservesDirectoryAndExtension(t *testing.T) {
	s := NewHashingSandbox()

	got := s.SandboxFileFor("internal/parser/parser.go")

	dir := "internal/parser"
	if len(got) <= len(dir) || got[:len(dir)] != dir {
		t.Errorf("SandboxFileFor(%q) = %q, want it to stay under %q", "internal/parser/parser.go", got, dir)
	}
	if got[len(got)-3:] != ".go" {
		t.Errorf("SandboxFileFor(%q) = %q, want a .go suffix", "internal/parser/parser.go", got)
	}
}

func TestHashingSandbox_NoDirectory(t *testing.T) {
	s := NewHashingSandbox()

	got := s.SandboxFileFor("main.go")
	if got[len(got)-3:] != ".go" {
		t.Errorf("SandboxFileFor(%q) = %q, want a .go suffix", "main.go", got)
	}
}
