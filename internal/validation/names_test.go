package validation

import (
	"strings"
	"testing"
)

func TestCheckPackageName(t *testing.T) {
	cases := []struct {
		name string
		pkg  string
		ok   bool
	}{
		{name: "three segments", pkg: "com.acme.shop", ok: true},
		{name: "four segments", pkg: "io.acme.shop.mobile", ok: true},
		{name: "digits after a letter", pkg: "com.acme2.app1", ok: true},
		{name: "empty", pkg: "", ok: false},
		{name: "two segments", pkg: "acme.shop", ok: false},
		{name: "uppercase segment", pkg: "com.Acme.shop", ok: false},
		{name: "segment starts with digit", pkg: "com.1acme.shop", ok: false},
		{name: "empty segment", pkg: "com..shop", ok: false},
		{name: "hyphenated segment", pkg: "com.acme-co.shop", ok: false},
		{name: "reserved android namespace", pkg: "com.android.fake", ok: false},
		{name: "reserved google namespace", pkg: "com.google.maps.clone", ok: false},
		{name: "reserved java namespace", pkg: "java.lang.app", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFieldErrors()
			CheckPackageName(f, "package_name", tc.pkg)
			if tc.ok && len(f) != 0 {
				t.Fatalf("expected %q to pass, got %v", tc.pkg, f)
			}
			if !tc.ok && len(f) == 0 {
				t.Fatalf("expected %q to be rejected", tc.pkg)
			}
		})
	}
}

func TestCheckDisplayName(t *testing.T) {
	cases := []struct {
		name    string
		display string
		ok      bool
	}{
		{name: "simple", display: "My Shop", ok: true},
		{name: "padded with spaces", display: "  Corner Store  ", ok: true},
		{name: "minimum length", display: "Go", ok: true},
		{name: "empty", display: "", ok: false},
		{name: "single rune", display: "X", ok: false},
		{name: "over fifty characters", display: strings.Repeat("a", 51), ok: false},
		{name: "multi-byte name within the rune bound", display: strings.Repeat("店", 26), ok: true},
		{name: "two-rune multi-byte name", display: "小店", ok: true},
		{name: "multi-byte name over fifty runes", display: strings.Repeat("店", 51), ok: false},
		{name: "angle brackets", display: "<script>alert</script>", ok: false},
		{name: "double quote", display: `Say "hi"`, ok: false},
		{name: "backslash", display: `back\slash`, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFieldErrors()
			CheckDisplayName(f, "app_name", tc.display)
			if tc.ok && len(f) != 0 {
				t.Fatalf("expected %q to pass, got %v", tc.display, f)
			}
			if !tc.ok && len(f) == 0 {
				t.Fatalf("expected %q to be rejected", tc.display)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "My Shop", want: "My_Shop"},
		{in: "Cafe-24.7", want: "Cafe_24_7"},
		{in: "  trimmed ", want: "trimmed"},
		{in: "олень", want: "app"},
		{in: "///", want: "app"},
	}

	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
