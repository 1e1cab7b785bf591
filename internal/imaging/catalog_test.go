package imaging

import (
	"reflect"
	"testing"
)

func TestCatalogResolve(t *testing.T) {
	catalog := DefaultCatalog()

	p, ok := catalog.Resolve("smallThumb")
	if !ok {
		t.Fatal("smallThumb missing from default catalog")
	}
	if p.MaxDimension != 300 || p.ByteBudget != 100 || p.Suffix != "-st" || p.Watermark {
		t.Errorf("unexpected smallThumb profile: %+v", p)
	}

	if _, ok := catalog.Resolve("SMALLTHUMB"); ok {
		t.Error("profile lookup must be case-sensitive")
	}
	if _, ok := catalog.Resolve("nope"); ok {
		t.Error("unknown profile resolved")
	}
}

func TestCatalogFormatOptions(t *testing.T) {
	catalog := DefaultCatalog()

	got := catalog.FormatOptions("PSD")
	want := []string{"-strip", "-interlace", "Plane", "-trim", "-flatten", "-background", "grey"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PSD options = %v, want %v", got, want)
	}

	got = catalog.FormatOptions("BMP")
	want = []string{"-strip", "-interlace", "Plane"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unknown format options = %v, want defaults only", got)
	}
}

func TestCatalogFormatOptionsReturnsCopy(t *testing.T) {
	catalog := DefaultCatalog()

	first := catalog.FormatOptions("GIF")
	first[0] = "mutated"

	second := catalog.FormatOptions("GIF")
	if second[0] != "-strip" {
		t.Error("FormatOptions must return a fresh slice per call")
	}
}
