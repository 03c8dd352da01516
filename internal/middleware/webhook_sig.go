package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Webhook-Signature"

// validateSignature verifies an HMAC-SHA256 signature computed over the raw
// request body with the shared webhook secret.
func validateSignature(secret, signature string, body []byte) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign computes the signature the backend attaches to outbound webhook calls.
// Exposed so tests and callers can produce valid requests.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// WebhookAuth validates signed webhook requests under pathPrefix. Requests
// outside the prefix pass through untouched.
func WebhookAuth(pathPrefix string, getSecret func() string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, pathPrefix) {
				return next(c)
			}

			secret := getSecret()
			if secret == "" {
				return c.String(http.StatusInternalServerError, "WEBHOOK_SECRET not configured")
			}

			bodyBytes, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to read request body")
			}
			// Hand the body back to the route handler.
			c.Request().Body = io.NopCloser(bytes.NewReader(bodyBytes))

			signature := c.Request().Header.Get(SignatureHeader)
			if !validateSignature(secret, signature, bodyBytes) {
				return c.String(http.StatusUnauthorized, "Invalid webhook signature")
			}

			return next(c)
		}
	}
}
