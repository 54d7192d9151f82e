// Package notify delivers OTP messages. [Twilio] sends SMS through the
// Twilio REST API; [Log] writes messages to a zap logger for local
// development. Both satisfy shopAuth.Notifier.
package notify
