package jibit

import (
	"fmt"
	"maps"
	"slices"
)

// Parameter keys shared by the provider and its requests.
const (
	ParamAPIKey       = "apiKey"
	ParamSecretKey    = "secretKey"
	ParamAccessToken  = "accessToken"
	ParamRefreshToken = "refreshToken"
	ParamMobileNumber = "mobileNumber"
	ParamNationalCode = "nationalCode"
	ParamCardNumber   = "cardNumber"
	ParamBirthDate    = "birthDate"
)

// Params is a small string-keyed parameter set. The zero value is ready to
// use. Params is not safe for concurrent use; owners guard it.
type Params struct {
	values map[string]string
}

// Get returns the value for key, or "" when unset.
func (p *Params) Get(key string) string {
	return p.values[key]
}

// Has reports whether key is set to a non-empty value.
func (p *Params) Has(key string) bool {
	return p.values[key] != ""
}

// Set stores value under key.
func (p *Params) Set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string)
	}

	p.values[key] = value
}

// Clone returns an independent copy.
func (p *Params) Clone() Params {
	return Params{values: maps.Clone(p.values)}
}

// Keys returns the set keys in sorted order.
func (p *Params) Keys() []string {
	return slices.Sorted(maps.Keys(p.values))
}

// Require returns ErrInvalidRequest naming the first missing key.
func (p *Params) Require(keys ...string) error {
	for _, k := range keys {
		if !p.Has(k) {
			return fmt.Errorf("%w: the %s parameter is required", ErrInvalidRequest, k)
		}
	}

	return nil
}
