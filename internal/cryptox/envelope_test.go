package cryptox

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/willtrail/willtrail/internal/common"
)

// The scrypt cost makes key derivation slow; share one Envelope per test run.
var testEnv = NewEnvelope("unit-test-secret")

func TestSealOpen_RoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":        {},
		"single byte":  {0x42},
		"block sized":  bytes.Repeat([]byte{0xAB}, 16),
		"text":         []byte("advance directive, do not resuscitate"),
		"binary":       {0x00, 0xFF, 0x10, 0x00, 0x7F},
		"large (1MiB)": bytes.Repeat([]byte("willtrail"), 1<<20/9),
	}

	for name, plaintext := range cases {
		t.Run(name, func(t *testing.T) {
			envelope, err := testEnv.Seal(plaintext)
			if err != nil {
				t.Fatalf("Seal error: %v", err)
			}
			got, err := testEnv.Open(envelope)
			if err != nil {
				t.Fatalf("Open error: %v", err)
			}
			if !bytes.Equal(got, plaintext) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(plaintext))
			}
		})
	}
}

func TestSeal_FreshIVPerCall(t *testing.T) {
	plaintext := []byte("identical input")

	a, err := testEnv.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	b, err := testEnv.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	if a == b {
		t.Fatal("two Seal calls produced identical envelopes; IV is being reused")
	}
}

func TestSeal_EnvelopeShape(t *testing.T) {
	envelope, err := testEnv.Seal([]byte("x"))
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	ivHex, ctHex, found := strings.Cut(envelope, ":")
	if !found {
		t.Fatalf("envelope missing separator: %q", envelope)
	}
	if len(ivHex) != 32 {
		t.Fatalf("expected 16-byte IV (32 hex chars), got %d", len(ivHex))
	}
	if len(ctHex) == 0 || len(ctHex)%32 != 0 {
		t.Fatalf("ciphertext not a whole number of blocks: %d hex chars", len(ctHex))
	}
}

func TestOpen_MalformedEnvelope(t *testing.T) {
	valid, err := testEnv.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	iv, ct, _ := strings.Cut(valid, ":")

	cases := map[string]string{
		"empty":                "",
		"no separator":         iv + ct,
		"bad iv hex":           "zz" + iv[2:] + ":" + ct,
		"short iv":             iv[:30] + ":" + ct,
		"bad ciphertext hex":   iv + ":nothex!",
		"empty ciphertext":     iv + ":",
		"ragged block length": iv + ":" + ct[:len(ct)-2],
		"separator only":      ":",
	}

	for name, envelope := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := testEnv.Open(envelope)
			if err == nil {
				t.Fatal("expected error for malformed envelope")
			}
			if !errors.Is(err, common.ErrDecryptionFailed) {
				t.Fatalf("expected ErrDecryptionFailed, got %v", err)
			}
		})
	}
}

// CBC carries no integrity check, so a tampered ciphertext either breaks the
// padding (typed error) or decrypts to different bytes. It must never panic
// or surface an untyped failure.
func TestOpen_TamperedCiphertext(t *testing.T) {
	plaintext := []byte("tamper detection sample, long enough for several blocks")
	valid, err := testEnv.Seal(plaintext)
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}
	iv, ct, _ := strings.Cut(valid, ":")

	for i := 0; i < len(ct); i += 7 {
		flipped := []byte(ct)
		if flipped[i] == 'a' {
			flipped[i] = 'b'
		} else {
			flipped[i] = 'a'
		}

		got, err := testEnv.Open(iv + ":" + string(flipped))
		if err != nil {
			if !errors.Is(err, common.ErrDecryptionFailed) {
				t.Fatalf("offset %d: expected ErrDecryptionFailed, got %v", i, err)
			}
			continue
		}
		if bytes.Equal(got, plaintext) {
			t.Fatalf("offset %d: tampered envelope decrypted to the original bytes", i)
		}
	}
}

func TestOpen_WrongKey(t *testing.T) {
	other := NewEnvelope("a-different-secret")

	envelope, err := testEnv.Seal([]byte("sealed under another key"))
	if err != nil {
		t.Fatalf("Seal error: %v", err)
	}

	got, err := other.Open(envelope)
	if err != nil {
		if !errors.Is(err, common.ErrDecryptionFailed) {
			t.Fatalf("expected ErrDecryptionFailed, got %v", err)
		}
		return
	}
	if bytes.Equal(got, []byte("sealed under another key")) {
		t.Fatal("wrong key recovered the plaintext")
	}
}

func TestPKCS7_RoundTrip(t *testing.T) {
	for size := 0; size <= 33; size++ {
		data := bytes.Repeat([]byte{0x5A}, size)
		padded := pkcs7Pad(data, 16)
		if len(padded)%16 != 0 {
			t.Fatalf("size %d: padded length %d not block aligned", size, len(padded))
		}
		got, err := pkcs7Unpad(padded, 16)
		if err != nil {
			t.Fatalf("size %d: unpad error: %v", size, err)
		}
		if !bytes.Equal(got, data) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestPKCS7_RejectsBadPadding(t *testing.T) {
	cases := map[string][]byte{
		"empty":             {},
		"zero pad byte":     append(bytes.Repeat([]byte{1}, 15), 0),
		"pad over block":    append(bytes.Repeat([]byte{1}, 15), 17),
		"inconsistent tail": append(bytes.Repeat([]byte{9}, 14), 2, 3),
		"unaligned":         bytes.Repeat([]byte{1}, 15),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := pkcs7Unpad(data, 16); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
