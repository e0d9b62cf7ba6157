package delivery

import "testing"

func TestParseShareNotations(t *testing.T) {
	cases := []struct {
		raw    string
		server string
		share  string
		path   string
	}{
		{"192.168.1.100/documents", "192.168.1.100", "documents", ""},
		{"//192.168.1.100/documents", "192.168.1.100", "documents", ""},
		{`\\192.168.1.100\documents`, "192.168.1.100", "documents", ""},
		{`\\nas\share\folder\subfolder`, "nas", "share", "folder/subfolder"},
		{"nas.local/scans/2026", "nas.local", "scans", "2026"},
		{"  //nas/scans  ", "nas", "scans", ""},
	}
	for _, tc := range cases {
		got, err := ParseShare(tc.raw)
		if err != nil {
			t.Fatalf("ParseShare(%q) returned error: %v", tc.raw, err)
		}
		if got.Server != tc.server || got.Share != tc.share || got.Path != tc.path {
			t.Fatalf("ParseShare(%q) = %+v, want (%s, %s, %s)", tc.raw, got, tc.server, tc.share, tc.path)
		}
	}
}

func TestParseShareEquivalentSpellings(t *testing.T) {
	first, err := ParseShare("192.168.1.100/documents")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, raw := range []string{"//192.168.1.100/documents", `\\192.168.1.100\documents`} {
		got, err := ParseShare(raw)
		if err != nil {
			t.Fatalf("ParseShare(%q) returned error: %v", raw, err)
		}
		if got != first {
			t.Fatalf("ParseShare(%q) = %+v, want %+v", raw, got, first)
		}
	}
}

func TestParseShareRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "   ", "justserver", "//onlyserver", "bad host/share"} {
		if _, err := ParseShare(raw); err == nil {
			t.Fatalf("ParseShare(%q) should fail", raw)
		}
	}
}
