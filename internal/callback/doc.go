// Package callback receives the OAuth2 authorization redirect on a loopback
// address so the CLI can complete a login without copy and paste.
//
//	srv, err := callback.New("http://127.0.0.1:8976/callback")
//	errCh, err := srv.Start(ctx)
//	// send the user to the authorization URL
//	code, err := srv.Wait(ctx)
//	_ = srv.Shutdown(shutdownCtx)
package callback
