// Package jibit is a client for the Jibit identity (KYC) matching API.
//
// A Provider owns the API key pair, the transport and a cache store holding
// the provider's access/refresh token pair. Each lookup is a Request that
// is sent once:
//
//	p, err := jibit.NewProvider(jibit.Options{APIKey: k, SecretKey: s}, httpClient, cache.NewMemory(), logger)
//	resp, err := p.MatchNationalCodeWithMobileNumber(jibit.MobileMatch{
//		MobileNumber: "09120000000",
//		NationalCode: "0012345678",
//	}).Send(ctx)
//	if err == nil && resp.IsSuccessful() && resp.Matched() { ... }
//
// Tokens are reused from the cache while valid, refreshed with the refresh
// token when the access token has expired, and regenerated from the key pair
// as a last resort. When the provider answers security.auth_required the
// request forces a new token and retries exactly once.
//
// Business errors reported by the provider are not Go errors: they surface
// as an unsuccessful Response whose Errors method lists them. Go errors are
// reserved for communication failures (matching ErrInvalidResponse) and
// misuse (ErrRequestSent, ErrResponseNotReady, ErrInvalidRequest).
package jibit
