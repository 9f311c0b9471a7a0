package guard

import "sort"

// PasswordKey is the credential key holding the plaintext password.
const PasswordKey = "password"

// Credentials carries login input. Any key other than "password" is an
// identifier column, usually "email".
type Credentials map[string]string

// Password returns the plaintext password, if present.
func (c Credentials) Password() string {
	return c[PasswordKey]
}

// Identifier returns the first identifier column and value. "email" wins
// when present; remaining keys are tried in sorted order so lookups are
// deterministic.
func (c Credentials) Identifier() (column, value string, ok bool) {
	if v, found := c["email"]; found {
		return "email", v, true
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		if k == PasswordKey {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", "", false
	}
	sort.Strings(keys)
	return keys[0], c[keys[0]], true
}

// HasOnlyPassword reports whether no identifier column was supplied.
// Providers short-circuit to a non-match in that case.
func (c Credentials) HasOnlyPassword() bool {
	if _, found := c[PasswordKey]; !found {
		return false
	}
	return len(c) == 1
}
