// Package providers implements the dialer's outbound collaborators over
// HTTP and parses what the providers send back.
//
//   - Twilio places calls and verifies X-Twilio-Signature on status
//     callbacks; ParseStatusCallback maps CallStatus to lifecycle events.
//   - ConversationClient hands answered calls to the conversation service;
//     ParseReport verifies and decodes its signed reports.
//   - MeetingClient books meetings with an Idempotency-Key, authorized by
//     OAuth2 client credentials.
//   - EmailNotifier sends meeting emails through pkg/email.
//   - WebhookSink publishes outcome events as signed webhooks.
//
// Every HTTP client goes through pkg/webhook, so calls share retry, backoff
// and per-client circuit breaking.
package providers
