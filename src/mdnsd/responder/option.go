package responder

import (
	"github.com/dogmatiq/dodeca/logging"
)

// Option configures a Responder.
type Option func(*Responder)

// UseLogger sets the logger used by the responder.
func UseLogger(l logging.Logger) Option {
	return func(r *Responder) { r.logger = l }
}

// UseDomain overrides the domain under which names are resolved. The
// default is wire.DefaultDomain ("local").
func UseDomain(domain string) Option {
	return func(r *Responder) { r.domain = domain }
}
