package adapter

import (
	"errors"
	"net/http"
)

// ErrMissingCredentials is returned when a carrier requiring credentials is
// queried without them. This is a configuration problem and always
// propagates to the caller, never degrades into a fallback response.
var ErrMissingCredentials = errors.New("missing carrier credentials")

// userAgent identifies outbound requests. Some carriers reject requests
// without one.
const userAgent = "parceltracker/1.0"

// jsonHeaders builds the default outbound header set. Asking for JSON
// matters: a few carriers answer HTML error pages otherwise.
func jsonHeaders() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "application/json")
	return h
}
