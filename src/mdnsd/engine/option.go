package engine

import "github.com/dogmatiq/dodeca/logging"

// Option configures an Engine at construction time.
type Option func(*Engine)

// UseLogger sets the logger used across the scheduler, responder, query
// engine and transports.
func UseLogger(l logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// UseDomain overrides the mDNS domain (default "local").
func UseDomain(domain string) Option {
	return func(e *Engine) { e.domain = domain }
}

// DisableIPv4 disables the IPv4 transport entirely, matching the
// teacher's DisableIPv4 option.
func DisableIPv4() Option {
	return func(e *Engine) { e.disableIPv4 = true }
}

// DisableIPv6 disables the IPv6 transport entirely.
func DisableIPv6() Option {
	return func(e *Engine) { e.disableIPv6 = true }
}
