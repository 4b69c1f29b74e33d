package walrusurl

import "testing"

func TestParseLedgerTarget(t *testing.T) {
	u, err := Parse("walrus::0xabc123")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Backend != BackendLedger || u.Target != "0xabc123" {
		t.Errorf("unexpected parse result: %+v", u)
	}
}

func TestParseLocalTarget(t *testing.T) {
	u, err := Parse("walrus::/tmp/myrepo")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Backend != BackendLocal || u.Target != "/tmp/myrepo" {
		t.Errorf("unexpected parse result: %+v", u)
	}
}

func TestParseRejectsMissingScheme(t *testing.T) {
	if _, err := Parse("/tmp/myrepo"); err == nil {
		t.Fatal("expected error for missing scheme")
	}
}

func TestParseRejectsEmptyTarget(t *testing.T) {
	if _, err := Parse("walrus::"); err == nil {
		t.Fatal("expected error for empty target")
	}
}

func TestStringRoundTrip(t *testing.T) {
	u, err := Parse("walrus::0xdeadbeef")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.String() != "walrus::0xdeadbeef" {
		t.Errorf("got %q", u.String())
	}
}
