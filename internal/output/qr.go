package output

import (
	"encoding/base64"
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"

	"github.com/mrz1836/custody/internal/fileutil"
	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// RenderAddressQR draws address as a compact QR code when w is a
// terminal. It reports whether anything was drawn.
func RenderAddressQR(w io.Writer, address string) bool {
	if !IsTerminal(w) {
		return false
	}

	qrterminal.GenerateWithConfig(address, qrterminal.Config{
		Level:          qr.L,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return true
}

// WriteQRFile decodes a base64 PNG and writes it to path atomically.
func WriteQRFile(path, pngBase64 string) error {
	if pngBase64 == "" {
		return custodyerr.Wrap(custodyerr.ErrInvalidInput, "no qr code was generated")
	}
	data, err := base64.StdEncoding.DecodeString(pngBase64)
	if err != nil {
		return custodyerr.Wrap(custodyerr.ErrInvalidInput, "qr code is not base64: %v", err)
	}
	return fileutil.WriteAtomic(path, data, 0o644)
}
