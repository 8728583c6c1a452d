package main

import (
	"testing"
)

func TestParseBinaryEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    BinaryEncoding
		wantErr bool
	}{
		{"NONE", BinaryNone, false},
		{"", BinaryNone, false},
		{"base64", BinaryBase64, false},
		{" Hex ", BinaryHex, false},
		{"base32", BinaryNone, true},
	}

	for _, tt := range tests {
		got, err := ParseBinaryEncoding(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBinaryEncoding(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBinaryEncoding(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDecodeBinary(t *testing.T) {
	// Oracle's encoder wraps base64 output.
	got, err := decodeBinary("aGVsbG8g\r\nd29ybGQ=", BinaryBase64)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Errorf("decodeBinary(base64) = %q", got)
	}

	got, err = decodeBinary("CAFE", BinaryHex)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "\xca\xfe" {
		t.Errorf("decodeBinary(upper hex) = %x", got)
	}

	if _, err := decodeBinary("abc", BinaryHex); err == nil {
		t.Error("expected error for odd-length hex")
	}
	if _, err := decodeBinary("!!", BinaryBase64); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestBinaryEncodingText(t *testing.T) {
	var e BinaryEncoding
	if err := e.UnmarshalText([]byte("hex")); err != nil {
		t.Fatal(err)
	}
	if e != BinaryHex {
		t.Errorf("UnmarshalText(hex) = %s", e)
	}
	b, _ := e.MarshalText()
	if string(b) != "HEX" {
		t.Errorf("MarshalText() = %s, want HEX", b)
	}
	if err := e.UnmarshalText([]byte("uuencode")); err == nil {
		t.Error("expected error for unknown encoding")
	}
}
