package airauth

import (
	"strings"
	"testing"
	"time"
)

// rfc6238Secret is the 20-byte ASCII secret from the RFC test vectors.
var rfc6238Secret = []byte("12345678901234567890")

func TestHOTPReferenceVectors(t *testing.T) {
	// RFC 6238 appendix B, truncated to 6 digits.
	cases := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}
	for _, tc := range cases {
		got := hotpCode(rfc6238Secret, tc.unix/totpPeriod)
		if got != tc.want {
			t.Errorf("t=%d: got %s, want %s", tc.unix, got, tc.want)
		}
	}
}

func newTestTOTP() *totpManager {
	return newTOTPManager(TOTPConfig{
		Issuer:      "AeroVia",
		SecretBytes: 20,
		SkewSteps:   1,
		BackupCodes: 10,
		QRCodeSize:  256,
	})
}

func TestVerifyCodeAcceptsSkew(t *testing.T) {
	m := newTestTOTP()
	secret := base32NoPad.EncodeToString(rfc6238Secret)
	now := time.Unix(1111111111, 0)

	for _, code := range []string{
		"050471", // current step
		"081804", // previous step
	} {
		ok, err := m.VerifyCode(secret, code, now)
		if err != nil || !ok {
			t.Errorf("code %s: ok=%v err=%v", code, ok, err)
		}
	}

	// Two steps back is out of the window.
	ok, err := m.VerifyCode(secret, "050471", now.Add(60*time.Second))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Error("code two steps stale was accepted")
	}
}

func TestVerifyCodeRejectsMalformedInput(t *testing.T) {
	m := newTestTOTP()
	secret := base32NoPad.EncodeToString(rfc6238Secret)
	now := time.Unix(1111111111, 0)

	for _, code := range []string{"", "12345", "1234567", "abc123", "05047a"} {
		ok, err := m.VerifyCode(secret, code, now)
		if err != nil || ok {
			t.Errorf("code %q: ok=%v err=%v", code, ok, err)
		}
	}
}

func TestVerifyCodeMalformedSecret(t *testing.T) {
	m := newTestTOTP()
	if _, err := m.VerifyCode("not base32!!", "123456", time.Now()); err == nil {
		t.Fatal("expected an error for a malformed secret")
	}
	if _, err := m.VerifyCode("", "123456", time.Now()); err == nil {
		t.Fatal("expected an error for an empty secret")
	}
}

func TestGenerateSecretShape(t *testing.T) {
	m := newTestTOTP()
	seen := map[string]bool{}
	for i := 0; i < 8; i++ {
		secret, err := m.GenerateSecret()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		raw, err := base32NoPad.DecodeString(secret)
		if err != nil {
			t.Fatalf("secret %q is not unpadded base32: %v", secret, err)
		}
		if len(raw) != 20 {
			t.Fatalf("secret decodes to %d bytes, want 20", len(raw))
		}
		if seen[secret] {
			t.Fatal("duplicate secret generated")
		}
		seen[secret] = true
	}
}

func TestProvisionURI(t *testing.T) {
	m := newTestTOTP()
	uri := m.ProvisionURI("JBSWY3DPEHPK3PXP", "alice@example.com")

	if !strings.HasPrefix(uri, "otpauth://totp/AeroVia:alice@example.com?") {
		t.Fatalf("unexpected label in %q", uri)
	}
	if !strings.Contains(uri, "secret=JBSWY3DPEHPK3PXP") {
		t.Fatalf("secret missing from %q", uri)
	}
	if !strings.Contains(uri, "issuer=AeroVia") {
		t.Fatalf("issuer missing from %q", uri)
	}
}

func TestQRCodeURLWrapsURI(t *testing.T) {
	m := newTestTOTP()
	uri := m.ProvisionURI("JBSWY3DPEHPK3PXP", "alice@example.com")
	qr := m.QRCodeURL(uri)

	if !strings.HasPrefix(qr, "https://api.qrserver.com/v1/create-qr-code/?size=256x256&data=") {
		t.Fatalf("unexpected QR endpoint %q", qr)
	}
}
