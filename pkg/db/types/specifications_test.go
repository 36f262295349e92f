package dbtypes

import "testing"

func TestSpecificationsCanonicalIsKeyOrderIndependent(t *testing.T) {
	a := Specifications{"colour": "white", "brand": "Dulux", "finish": "matte"}
	b := Specifications{"finish": "matte", "colour": "white", "brand": "Dulux"}

	if a.Canonical() != b.Canonical() {
		t.Fatalf("expected equal canonical forms, got %s vs %s", a.Canonical(), b.Canonical())
	}
	want := `{"brand":"Dulux","colour":"white","finish":"matte"}`
	if a.Canonical() != want {
		t.Fatalf("unexpected canonical form %s", a.Canonical())
	}
	if (Specifications{}).Canonical() != "{}" {
		t.Fatal("empty snapshot should render {}")
	}
}

func TestSpecificationsScanAndValue(t *testing.T) {
	var s Specifications
	if err := s.Scan([]byte(`{"b":"2","a":"1"}`)); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := s.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected keys %v", got)
	}
	v, err := s.Value()
	if err != nil || v != `{"a":"1","b":"2"}` {
		t.Fatalf("unexpected value %v err=%v", v, err)
	}

	var empty Specifications
	if err := empty.Scan(nil); err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil snapshot, got %v err=%v", empty, err)
	}
	if err := empty.Scan(42); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestSpecificationsBlankKey(t *testing.T) {
	if _, ok := (Specifications{"a": "1"}).BlankKey(); ok {
		t.Fatal("no blank key expected")
	}
	if _, ok := (Specifications{" ": "1"}).BlankKey(); !ok {
		t.Fatal("expected blank key detection")
	}
}
