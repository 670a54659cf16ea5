package normalize

import "testing"

func TestInvnumNorm(t *testing.T) {
	cases := map[string]string{
		" inv-000123 ":  "123",
		"invoice-001A":  "1A",
		"INV000":        "0",
		"":               "0",
		"BILL-0099":     "99",
	}
	for in, want := range cases {
		if got := InvnumNorm(in); got != want {
			t.Errorf("InvnumNorm(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInvnumNormIdempotent(t *testing.T) {
	inputs := []string{" inv-000123 ", "invoice-001A", "ABC-0001", "0000"}
	for _, in := range inputs {
		once := InvnumNorm(in)
		twice := InvnumNorm(once)
		if once != twice {
			t.Errorf("InvnumNorm not idempotent for %q: %q != %q", in, once, twice)
		}
		if once == "" {
			t.Errorf("InvnumNorm(%q) produced empty output", in)
		}
	}
}

func TestDescNorm(t *testing.T) {
	got := DescNorm("Printer Ink, Black!!!")
	want := "printer ink black"
	if got != want {
		t.Errorf("DescNorm = %q, want %q", got, want)
	}
}

func TestDescNormCharset(t *testing.T) {
	got := DescNorm("  Weird@@@  Text---Here  ")
	for _, r := range got {
		if !(r == ' ' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')) {
			t.Fatalf("DescNorm output contains disallowed rune %q in %q", r, got)
		}
	}
	if got != "" && (got[0] == ' ' || got[len(got)-1] == ' ') {
		t.Fatalf("DescNorm output has leading/trailing space: %q", got)
	}
}

func TestMaskAccountLast4(t *testing.T) {
	acct := "DE89 3704 0044 0532 0130 00"
	got := MaskAccountLast4(&acct)
	if got == nil || *got != "****3000" {
		t.Fatalf("MaskAccountLast4 = %v, want ****3000", got)
	}
	noDigits := "XX-NOACCOUNT"
	got2 := MaskAccountLast4(&noDigits)
	if got2 == nil || *got2 != "****" {
		t.Fatalf("MaskAccountLast4 no digits = %v, want ****", got2)
	}
	if MaskAccountLast4(nil) != nil {
		t.Fatalf("MaskAccountLast4(nil) should be nil")
	}
}

func TestHashAccount(t *testing.T) {
	a := "account-1"
	h1 := HashAccount(&a)
	h2 := HashAccount(&a)
	if h1 == nil || h2 == nil || *h1 != *h2 {
		t.Fatalf("HashAccount not deterministic")
	}
	if len(*h1) != 64 {
		t.Fatalf("HashAccount length = %d, want 64", len(*h1))
	}
	if HashAccount(nil) != nil {
		t.Fatalf("HashAccount(nil) should be nil")
	}
}
