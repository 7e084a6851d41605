// Package recovery turns password-reset redirect URLs into validated token bundles.
package recovery

import (
	"net/url"
	"slices"
)

const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyExpiresIn    = "expires_in"
	keyTokenType    = "token_type"
	keyType         = "type"
	keyRedirectTo   = "redirect_to"

	defaultExpiresIn = "3600"
	defaultTokenType = "bearer"
	defaultType      = "recovery"

	// legacyKeyMinLen is the length a bare query key must exceed to be taken
	// as a token.
	legacyKeyMinLen = 20
)

// Parser recognizes one redirect format and returns the raw token fields.
type Parser struct {
	Name  string
	Parse func(u *url.URL) (map[string]string, bool)
}

var parsers = []Parser{
	{Name: "fragment", Parse: parseFragment},
	{Name: "query", Parse: parseQuery},
	{Name: "legacy", Parse: parseLegacy},
}

// Parsers returns the redirect formats in the order they are tried.
func Parsers() []Parser {
	return slices.Clone(parsers)
}

// Extract returns the raw token fields of the first format that matches
// rawURL, and the name of that format. Unparsable URLs match nothing.
func Extract(rawURL string) (fields map[string]string, format string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", false
	}

	for _, p := range parsers {
		if fields, ok := p.Parse(u); ok {
			return fields, p.Name, true
		}
	}
	return nil, "", false
}

func parseFragment(u *url.URL) (map[string]string, bool) {
	if u.Fragment == "" {
		return nil, false
	}
	values, _ := url.ParseQuery(u.EscapedFragment())
	return fromValues(values)
}

func parseQuery(u *url.URL) (map[string]string, bool) {
	values, _ := url.ParseQuery(u.RawQuery)
	return fromValues(values)
}

func parseLegacy(u *url.URL) (map[string]string, bool) {
	values, _ := url.ParseQuery(u.RawQuery)
	if values.Has(keyAccessToken) {
		return nil, false
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if k == keyType || k == keyRedirectTo || len(k) <= legacyKeyMinLen {
			continue
		}
		return withDefaults(map[string]string{
			keyAccessToken:  k,
			keyRefreshToken: k,
			keyType:         values.Get(keyType),
		}), true
	}
	return nil, false
}

func fromValues(values url.Values) (map[string]string, bool) {
	access := values.Get(keyAccessToken)
	if access == "" {
		return nil, false
	}

	return withDefaults(map[string]string{
		keyAccessToken:  access,
		keyRefreshToken: values.Get(keyRefreshToken),
		keyExpiresIn:    values.Get(keyExpiresIn),
		keyTokenType:    values.Get(keyTokenType),
		keyType:         values.Get(keyType),
	}), true
}

func withDefaults(fields map[string]string) map[string]string {
	setDefault(fields, keyRefreshToken, fields[keyAccessToken])
	setDefault(fields, keyExpiresIn, defaultExpiresIn)
	setDefault(fields, keyTokenType, defaultTokenType)
	setDefault(fields, keyType, defaultType)
	return fields
}

func setDefault(fields map[string]string, key, value string) {
	if fields[key] == "" {
		fields[key] = value
	}
}
