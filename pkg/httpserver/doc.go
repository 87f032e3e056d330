// Package httpserver runs an http.Server bound to a context and exposes a
// JSON readiness handler.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Run blocks until ctx is canceled and then drains in-flight requests for
// up to ShutdownTimeout. Signal handling belongs to the caller, usually via
// signal.NotifyContext in main.
package httpserver
