package probe

import (
	"bytes"
	"net/http"
	"strings"
)

// detectChallenge checks a response for the signatures of the common bot
// protection products. It reports the product name when a block or challenge
// page was served instead of the real content.
func detectChallenge(status int, headers http.Header, body []byte) (bool, string) {
	if status != http.StatusForbidden && status != http.StatusServiceUnavailable {
		return false, ""
	}

	server := strings.ToLower(headers.Get("Server"))

	switch {
	case strings.Contains(server, "cloudflare"),
		bytes.Contains(body, []byte("cf-browser-verification")),
		bytes.Contains(body, []byte("cf-turnstile")),
		bytes.Contains(body, []byte("Attention Required! | Cloudflare")):
		return true, "Cloudflare"

	case strings.Contains(server, "akamai"),
		bytes.Contains(body, []byte("Reference #")) && bytes.Contains(body, []byte("Access Denied")):
		return true, "Akamai"

	case strings.Contains(server, "datadome"),
		headers.Get("X-DataDome") != "",
		headers.Get("X-DataDome-Response") != "",
		bytes.Contains(body, []byte("geo.captcha-delivery.com")):
		return true, "DataDome"

	case headers.Get("X-Px-Captcha") != "",
		bytes.Contains(body, []byte("client.perimeterx.net")),
		bytes.Contains(body, []byte("px-captcha")):
		return true, "PerimeterX"
	}

	return false, ""
}
