// Package webhook authenticates inbound SMS provider callbacks.
//
// The provider signs each callback with HMAC-SHA1 keyed by the account auth
// token over the full callback URL followed by the sorted POST parameters,
// and sends the base64 result in the X-Twilio-Signature header.
//
//	v := webhook.NewValidator(authToken,
//		webhook.WithPublicURL("https://sms.example.com"),
//		webhook.WithLogger(log),
//	)
//	r.With(webhook.Middleware(v)).Post("/webhooks/sms/inbound", inbound)
//
// A request is rejected with 500 when no secret is configured, and with 403
// when the header is absent or does not match. WithSkipValidation disables
// the check for local development; every request accepted that way is
// logged at warn level.
package webhook
