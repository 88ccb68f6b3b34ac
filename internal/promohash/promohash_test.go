package promohash

import "testing"

func TestFingerprintLowercasesAndTrims(t *testing.T) {
	base := Fingerprint("save10")
	if Fingerprint("SAVE10") != base {
		t.Fatalf("expected case-insensitive fingerprint")
	}
	if Fingerprint("  save10  ") != base {
		t.Fatalf("expected whitespace-insensitive fingerprint")
	}
	if Fingerprint("save20") == base {
		t.Fatalf("different codes must not collide")
	}
}

func TestFingerprintKnownValue(t *testing.T) {
	// md5("save10")
	if got := Fingerprint("SAVE10"); got != "eaea6ae90daa83ce1412122f3658e9c2" {
		t.Fatalf("unexpected fingerprint: %s", got)
	}
}
