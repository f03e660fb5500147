package services

import "crypto/hmac"

// WebhookSecretHeader carries the secret_token registered with setWebhook on
// every delivery Telegram makes.
const WebhookSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// VerifyWebhookSecret reports whether got matches the configured secret.
// An empty secret matches nothing.
func VerifyWebhookSecret(got, secret string) bool {
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(got), []byte(secret))
}
