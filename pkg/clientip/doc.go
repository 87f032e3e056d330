// Package clientip resolves the originating client address of a request
// that may have passed through reverse proxies.
//
// Headers are examined in order and the first valid IP wins; RemoteAddr is
// the fallback. DefaultHeaders covers Cloudflare, standard proxies and
// Nginx:
//
//	r.Use(clientip.Middleware())
//	...
//	ip := clientip.FromContext(r.Context())
//
// Only trust forwarding headers set by infrastructure you control. A
// client can send any header it likes.
package clientip
