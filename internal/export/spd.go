package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strconv"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// SPDPayload builds the short payment descriptor scanned by banking
// apps. Field values must not carry the asterisk separator.
func SPDPayload(iban string, amount float64, message, recipient string) string {
	return fmt.Sprintf("SPD*1.0*ACC:%s*AM:%s*CC:EUR*MSG:%s*RN:%s",
		spdField(iban),
		strconv.FormatFloat(amount, 'f', 2, 64),
		spdField(message),
		spdField(recipient))
}

func spdField(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), "*", " ")
}

// QRDataURI renders the payload as a QR code PNG embedded in a data
// URI, ready for an img tag in the invoice HTML.
func QRDataURI(payload string, size int) (string, error) {
	if size <= 0 {
		size = 200
	}
	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return "", err
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
