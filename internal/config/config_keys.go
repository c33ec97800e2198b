// config_keys.go provides key-value access to configuration settings, used
// by `pim config` where values are addressed by dotted keys such as
// "limits.search_results".
//
// Pointers distinguish "not set" from an explicit value, so defaults apply
// only when the user never set the key.

package config

import (
	"fmt"
	"slices"
	"strconv"
)

// ValidKeys returns all valid configuration keys.
func ValidKeys() []string {
	return []string{
		"author.name",
		"data.dir",
		"log.level",
		"limits.breadcrumb_depth", "limits.search_results", "limits.preview_lines",
		"vault.kdf_time", "vault.kdf_memory",
	}
}

// IsValidKey returns true if the key is a valid configuration key.
func IsValidKey(key string) bool {
	return slices.Contains(ValidKeys(), key)
}

// Get returns the value of a configuration key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "author.name":
		return c.Author.Name, nil
	case "data.dir":
		return c.Data.Dir, nil
	case "log.level":
		return c.LogLevel(), nil
	case "limits.breadcrumb_depth":
		return strconv.Itoa(c.BreadcrumbDepth()), nil
	case "limits.search_results":
		return strconv.Itoa(c.SearchResults()), nil
	case "limits.preview_lines":
		return strconv.Itoa(c.PreviewLines()), nil
	case "vault.kdf_time":
		return strconv.FormatUint(uint64(c.KDFTime()), 10), nil
	case "vault.kdf_memory":
		return strconv.FormatUint(uint64(c.KDFMemory()), 10), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

func positiveInt(key, value string) (*int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidValue, key)
	}
	return &n, nil
}

func positiveUint32(key, value string) (*uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return nil, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidValue, key)
	}
	v := uint32(n)
	return &v, nil
}

// Set sets the value of a configuration key. The result is bounds-checked
// with Validate.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "author.name":
		c.Author.Name = value
	case "data.dir":
		c.Data.Dir = value
	case "log.level":
		if !validLevel(value) {
			return fmt.Errorf("%w: log.level must be one of %v", ErrInvalidValue, LogLevels)
		}
		c.Log.Level = value
	case "limits.breadcrumb_depth":
		c.Limits.BreadcrumbDepth, err = positiveInt(key, value)
	case "limits.search_results":
		c.Limits.SearchResults, err = positiveInt(key, value)
	case "limits.preview_lines":
		c.Limits.PreviewLines, err = positiveInt(key, value)
	case "vault.kdf_time":
		c.Vault.KDFTime, err = positiveUint32(key, value)
	case "vault.kdf_memory":
		c.Vault.KDFMemory, err = positiveUint32(key, value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return err
	}
	return c.Validate()
}

// All returns all configuration values as a map.
func (c *Config) All() map[string]string {
	out := make(map[string]string, len(ValidKeys()))
	for _, k := range ValidKeys() {
		v, _ := c.Get(k)
		out[k] = v
	}
	return out
}

// IsSet returns true if the key has an explicit value (not just defaults).
func (c *Config) IsSet(key string) bool {
	switch key {
	case "author.name":
		return c.Author.Name != ""
	case "data.dir":
		return c.Data.Dir != ""
	case "log.level":
		return c.Log.Level != ""
	case "limits.breadcrumb_depth":
		return c.Limits.BreadcrumbDepth != nil
	case "limits.search_results":
		return c.Limits.SearchResults != nil
	case "limits.preview_lines":
		return c.Limits.PreviewLines != nil
	case "vault.kdf_time":
		return c.Vault.KDFTime != nil
	case "vault.kdf_memory":
		return c.Vault.KDFMemory != nil
	default:
		return false
	}
}
