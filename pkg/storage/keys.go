// File: pkg/storage/keys.go
package storage

import "strings"

const DefaultDelimiter = "/"

// NormalizeKey places key under prefix, joined by exactly one delimiter.
// Leading delimiters are dropped whether or not a prefix is set, so "/x" and
// "x" always name the same item and "x" is the canonical form.
func NormalizeKey(key, prefix, delimiter string) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	key = trimDelimiterPrefix(key, delimiter)
	prefix = trimDelimiterSuffix(prefix, delimiter)
	if strings.TrimSpace(prefix) == "" {
		return key
	}
	return prefix + delimiter + key
}

// Checks a single-item key argument
func ValidateKey(name, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalidArgument(name, "must not be empty")
	}
	return nil
}

// KeySpace maps caller keys into the namespace a cabinet is configured for
type KeySpace struct {
	prefix    string
	delimiter string
}

func NewKeySpace(prefix, delimiter string) KeySpace {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	prefix = strings.TrimSpace(prefix)
	prefix = trimDelimiterSuffix(trimDelimiterPrefix(prefix, delimiter), delimiter)
	return KeySpace{prefix: prefix, delimiter: delimiter}
}

func (k KeySpace) Prefix() string {
	return k.prefix
}

func (k KeySpace) Delimiter() string {
	if k.delimiter == "" {
		return DefaultDelimiter
	}
	return k.delimiter
}

// Resolve validates key and returns the backend key it addresses
func (k KeySpace) Resolve(key string) (string, error) {
	if err := ValidateKey("key", key); err != nil {
		return "", err
	}
	if strings.TrimSpace(trimDelimiterPrefix(key, k.Delimiter())) == "" {
		return "", invalidArgument("key", "must name an item, not the root")
	}
	return NormalizeKey(key, k.prefix, k.Delimiter()), nil
}

// SearchPrefix returns the backend prefix listing keyPrefix as a directory.
// A blank keyPrefix lists the configured root. Non-empty results always end in
// the delimiter.
func (k KeySpace) SearchPrefix(keyPrefix string) string {
	delim := k.Delimiter()
	effective := k.prefix
	if strings.TrimSpace(keyPrefix) != "" {
		effective = NormalizeKey(keyPrefix, k.prefix, delim)
	}
	effective = trimDelimiterSuffix(effective, delim)
	if effective == "" {
		return ""
	}
	return effective + delim
}

// Strip converts a backend key back into the caller's key space
func (k KeySpace) Strip(effectiveKey string) string {
	if k.prefix == "" {
		return effectiveKey
	}
	root := k.prefix + k.Delimiter()
	if strings.HasPrefix(effectiveKey, root) {
		return effectiveKey[len(root):]
	}
	if effectiveKey == k.prefix {
		return ""
	}
	return effectiveKey
}

func trimDelimiterSuffix(s, delimiter string) string {
	for delimiter != "" && strings.HasSuffix(s, delimiter) {
		s = strings.TrimSuffix(s, delimiter)
	}
	return s
}

func trimDelimiterPrefix(s, delimiter string) string {
	for delimiter != "" && strings.HasPrefix(s, delimiter) {
		s = strings.TrimPrefix(s, delimiter)
	}
	return s
}
