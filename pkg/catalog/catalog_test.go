package catalog

import "testing"

func TestLookupIgnoresNDCFormatting(t *testing.T) {
	cat := DefaultCatalog()

	drug, ok := cat.Lookup("0074-4339-02")
	if !ok {
		t.Fatal("expected dashed NDC to resolve")
	}
	if drug.Name != "Humira" {
		t.Fatalf("expected Humira, got %s", drug.Name)
	}

	if _, ok := cat.Lookup("9999999999"); ok {
		t.Fatal("expected unknown NDC to miss")
	}
}

func TestLookupNameCaseInsensitive(t *testing.T) {
	cat := DefaultCatalog()
	drug, ok := cat.LookupName("  cosentyx ")
	if !ok {
		t.Fatal("expected name lookup to resolve")
	}
	if drug.Class != "IL-17" {
		t.Fatalf("expected IL-17 class, got %s", drug.Class)
	}
}

func TestBiosimilarsOfReferenceProduct(t *testing.T) {
	cat := DefaultCatalog()
	names := cat.BiosimilarsOf("Humira")
	if len(names) != 2 {
		t.Fatalf("expected 2 Humira biosimilars, got %d", len(names))
	}
	if bios := cat.BiosimilarsOf("Cosentyx"); len(bios) != 0 {
		t.Fatalf("expected no Cosentyx biosimilars, got %v", bios)
	}
}
