// Package prometheus exposes shopAuth engine metrics through client_golang.
//
// [Collector] converts [shopAuth.Engine.MetricsSnapshot] into const metrics on
// each scrape. [Exporter] wraps it in a private registry and serves it over
// HTTP. Counter names are prefixed shopauth_ and end in _total; OTP verify
// latency is exported as shopauth_otp_verify_latency_seconds.
//
// Nothing is registered on the global default registry.
package prometheus
