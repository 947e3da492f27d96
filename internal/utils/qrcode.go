package utils

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// BookingQR renders link as a PNG QR code of size x size pixels.  Medium
// error correction survives a crumpled printout.
func BookingQR(link string, size int) ([]byte, error) {
	if link == "" {
		return nil, fmt.Errorf("qr: empty link")
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(link, qrcode.Medium, size)
}

// BookingLink is the public page of a booking addressed by its URL token.
func BookingLink(baseURL, bookingURL string) string {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL + "/booking/" + bookingURL
}
