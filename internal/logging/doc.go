// Package logging builds zap loggers for the shopAuth binaries and masks
// personal data (emails, phone numbers, tokens) before it reaches logs or
// audit events.
package logging
