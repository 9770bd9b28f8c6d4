// Package tokensource implements the Infusionsoft OAuth2 authorization-code
// grant: building the consent URL, exchanging the returned code, and
// refreshing access tokens.
//
// Infusionsoft's token endpoint needs custom handling in a few ways:
//   - The code exchange sends client_id and client_secret as form parameters
//   - The refresh sends them as HTTP Basic credentials instead
//   - The consent URL carries redirect_uri unescaped and a fixed "full" scope
//
// # OAuth2 Authorization Flow
//
//	auth := tokensource.NewAuthorizer(tokensource.Credentials{
//		ClientID:     clientID,
//		ClientSecret: clientSecret,
//	})
//	authURL := auth.AuthCodeURL(redirectURL)
//	// After the user authorizes, Infusionsoft redirects with ?code=...
//	pair, err := auth.Exchange(ctx, code, redirectURL)
//	// Later, when pair.AccessToken has expired:
//	pair, err = auth.Refresh(ctx, pair.RefreshToken)
//
// The package keeps no token state. Callers decide when to refresh and where to
// store tokens; TokenPair.Token converts a pair to an expiring oauth2.Token.
//
// # Errors
//
// Transport failures return *transport.TransportError, bodies that are not JSON
// return *transport.DecodeError, and grants rejected by the provider return
// *TokenError.
package tokensource
