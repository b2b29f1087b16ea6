// Package auth provides the pluggable authentication gate applied by the
// streaming HTTP transport before any session dispatch. It focuses on bearer
// token (JWT) verification for servers that delegate authorization to an
// external OAuth 2.0 / OIDC authorization server.
//
// The public surface intentionally stays small: an Authenticator validates an
// incoming bearer credential string and returns a UserInfo (principal,
// granted scopes, expiry) or an error. The transport is responsible for
// extracting the credential from the HTTP request and mapping sentinel
// errors into RFC 6750 challenges.
//
// NewFromDiscovery constructs an Authenticator that validates RFC 9068
// access tokens using OpenID Connect discovery to obtain the issuer's JWKS.
// NewStatic skips discovery and takes the JWKS URL directly. Validation
// requirements (required scopes, leeway, allowed algorithms, extra
// audiences) are configured via functional options.
//
// Example:
//
//	ctx := context.Background()
//	authn, err := auth.NewFromDiscovery(ctx, "https://issuer.example", "https://api.example/sessions",
//	    auth.WithRequiredScopes("feed:read", "feed:write"),
//	)
//	if err != nil { log.Fatal(err) }
//
//	// Later inside request handling (pseudocode):
//	ui, err := authn.CheckAuthentication(r.Context(), bearerToken)
//	if errors.Is(err, auth.ErrUnauthorized) { /* map to 401 challenge */ }
//	if errors.Is(err, auth.ErrInsufficientScope) { /* map to 403 challenge */ }
//	userID := ui.UserID()
package auth
