package persona

import "testing"

func TestMemoryStoreKeepsOrderAndFirstDuplicate(t *testing.T) {
	store := NewMemoryStore([]Persona{
		{ID: "b", Name: "second"},
		{ID: " a ", Name: "first"},
		{ID: "b", Name: "shadowed"},
		{ID: "", Name: "nameless"},
	})

	list := store.List()
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		t.Fatalf("unexpected list %+v", list)
	}
	if p, ok := store.FindByID("b"); !ok || p.Name != "second" {
		t.Fatalf("expected first entry to win, got %+v ok=%v", p, ok)
	}
	if _, ok := store.FindByID("a"); !ok {
		t.Fatal("expected trimmed id to be indexed")
	}
	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("unexpected hit for unknown id")
	}
}

func TestMemoryStoreWithPreamble(t *testing.T) {
	base := NewMemoryStore(Seed())

	if base.WithPreamble("  ") != base {
		t.Fatal("blank preamble must return the same store")
	}

	custom := base.WithPreamble("cardiology only")
	p, _ := custom.FindByID(DefaultID)
	if p.Preamble != "cardiology only" {
		t.Fatalf("default persona not overridden: %q", p.Preamble)
	}

	original, _ := base.FindByID(DefaultID)
	if original.Preamble == "cardiology only" {
		t.Fatal("base store must be left untouched")
	}
	other, _ := custom.FindByID("pharmacy-guide")
	if other.Preamble != pharmacyPreamble {
		t.Fatal("only the default persona takes the override")
	}
}
