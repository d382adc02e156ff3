package ticket

import (
	"github.com/skip2/go-qrcode"
)

// qrSize is the edge length in pixels of generated ticket codes.
const qrSize = 256

// EncodeQR renders code as a PNG with medium error recovery.
func EncodeQR(code string) ([]byte, error) {
	return qrcode.Encode(code, qrcode.Medium, qrSize)
}
