package wallet

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// AddressQR renders address as a base64-encoded PNG QR code.
func AddressQR(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", err
	}
	png, err := qr.PNG(qrSize)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
