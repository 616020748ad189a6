package services

import "testing"

func TestExtractTextFromStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 712 Td\n(Hello) Tj\n0 -14 Td\n[(Wor) -250 (ld)] TJ\nT*\n(next line) '\nET\n")
	got := extractTextFromStream(stream)
	want := "Hello World next line"
	if got != want {
		t.Fatalf("extractTextFromStream = %q, want %q", got, want)
	}
}

func TestDecodePDFString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`line\nbreak`, "line\nbreak"},
		{`back\\slash`, `back\slash`},
		{`oct\040al`, "oct al"},
		{`\101BC`, "ABC"},
	}
	for _, tc := range cases {
		if got := decodePDFString([]byte(tc.in)); got != tc.want {
			t.Fatalf("decodePDFString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanPDFText(t *testing.T) {
	got := cleanPDFText("  a\n\nb\t c  ")
	if got != "a b c" {
		t.Fatalf("cleanPDFText = %q", got)
	}
}
