package airauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// TOTP parameters are pinned to what authenticator apps implement in
// practice: HMAC-SHA1, 6 digits, 30 second steps.
const (
	totpDigits = 6
	totpPeriod = 30
)

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

type totpManager struct {
	config TOTPConfig
}

func newTOTPManager(cfg TOTPConfig) *totpManager {
	return &totpManager{config: cfg}
}

// GenerateSecret returns a fresh random secret, base32-encoded without
// padding for direct entry into authenticator apps.
func (m *totpManager) GenerateSecret() (string, error) {
	raw := make([]byte, m.config.SecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return base32NoPad.EncodeToString(raw), nil
}

// ProvisionURI builds the otpauth:// URI encoded into enrollment QR codes.
func (m *totpManager) ProvisionURI(secret, account string) string {
	label := url.PathEscape(m.config.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", m.config.Issuer)

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// QRCodeURL wraps the provisioning URI in a public chart endpoint for
// clients that render the QR server-side.
func (m *totpManager) QRCodeURL(provisionURI string) string {
	return fmt.Sprintf("https://api.qrserver.com/v1/create-qr-code/?size=%dx%d&data=%s",
		m.config.QRCodeSize, m.config.QRCodeSize, url.QueryEscape(provisionURI))
}

// QRCodePNG renders the provisioning URI locally.
func (m *totpManager) QRCodePNG(provisionURI string) ([]byte, error) {
	png, err := qrcode.Encode(provisionURI, qrcode.Medium, m.config.QRCodeSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}

// VerifyCode checks a 6-digit code against the secret, accepting the
// configured number of steps of clock skew on either side.
func (m *totpManager) VerifyCode(secret, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isDigits(trimmed) {
		return false, nil
	}

	key, err := base32NoPad.DecodeString(strings.ToUpper(secret))
	if err != nil {
		return false, errors.New("malformed totp secret")
	}
	if len(key) == 0 {
		return false, errors.New("empty totp secret")
	}

	counter := now.Unix() / totpPeriod
	for step := -m.config.SkewSteps; step <= m.config.SkewSteps; step++ {
		c := counter + int64(step)
		if c < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(key, c)), []byte(trimmed)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// hotpCode is the RFC 4226 dynamic truncation over an HMAC-SHA1 of the
// big-endian counter.
func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	return fmt.Sprintf("%06d", bin%1000000)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
