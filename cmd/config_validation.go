package cmd

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dao"
)

// minSecretLength matches the minimum accepted by the token issuer.
const minSecretLength = 16

// configGetter retrieves raw configuration values by dotted key path.
type configGetter func(key string) any

// validateStartupConfig validates startup configuration from the shared config source.
// It returns an error when any configured value is malformed or violates constraints.
func validateStartupConfig() error {
	return validateStartupConfigWithGetter(func(key string) any {
		return gconfig.Shared.Get(key)
	})
}

// validateStartupConfigWithGetter validates startup configuration via a key-value getter.
// It accepts a value getter and returns nil when all configured values are valid.
func validateStartupConfigWithGetter(get configGetter) error {
	if get == nil {
		return errors.New("config getter is nil")
	}

	validationErrs := make([]string, 0)

	validateAuthConfig(get, &validationErrs)
	if dry, _ := parseStrictBool(get("dry")); !dry {
		validateBlogDBConfig(get, &validationErrs)
	}
	validateRedisConfig(get, &validationErrs)
	validateMediaConfig(get, &validationErrs)
	validateWebConfig(get, &validationErrs)

	if len(validationErrs) == 0 {
		return nil
	}

	return errors.Errorf("invalid configuration:\n - %s", strings.Join(validationErrs, "\n - "))
}

// validateAuthConfig validates the token secret, token lifetime and login throttle.
func validateAuthConfig(get configGetter, errs *[]string) {
	secret, err := parseStrictString(get("settings.secret"))
	switch {
	case err != nil || strings.TrimSpace(secret) == "":
		appendValidationError(errs, "settings.secret is required")
	case len(secret) < minSecretLength:
		appendValidationError(errs, "settings.secret must be at least %d bytes", minSecretLength)
	}

	validateOptionalDuration(get, "settings.auth.token_ttl", errs)
	validateOptionalDuration(get, "settings.auth.login_window", errs)
	validateOptionalIntMin(get, "settings.auth.login_max_failures", 1, errs)
}

// validateBlogDBConfig validates the document store selection.
// Network drivers need an address and a database, file drivers need a path.
func validateBlogDBConfig(get configGetter, errs *[]string) {
	driver := dao.DriverMongo
	if raw := get("settings.db.blog.driver"); raw != nil {
		value, err := parseStrictString(raw)
		if err != nil {
			appendValidationError(errs, "settings.db.blog.driver must be a string")
			return
		}
		driver = strings.ToLower(strings.TrimSpace(value))
	}

	switch driver {
	case dao.DriverMemory:
	case dao.DriverMongo, dao.DriverPostgres:
		validateRequiredString(get, "settings.db.blog.addr", errs)
		validateRequiredString(get, "settings.db.blog.db", errs)
	case dao.DriverJSONFile, dao.DriverSQLite:
		validateRequiredString(get, "settings.db.blog.path", errs)
	default:
		appendValidationError(errs, "settings.db.blog.driver %q is not one of %s",
			driver, strings.Join(dao.Drivers(), ", "))
	}
}

// validateRedisConfig validates redis-related startup configuration values.
// It accepts a getter and an error collector pointer and appends validation errors.
func validateRedisConfig(get configGetter, errs *[]string) {
	validateOptionalHost(get, "settings.db.redis.addr", errs)
	validateOptionalIntMin(get, "settings.db.redis.db", 0, errs)
}

// validateMediaConfig validates the object store used to offload inline images.
// Credentials are only required when the offload is enabled.
func validateMediaConfig(get configGetter, errs *[]string) {
	validateOptionalBool(get, "settings.media.use_ssl", errs)
	validateOptionalURL(get, "settings.media.public_url", errs)

	validateOptionalBool(get, "settings.media.enabled", errs)
	if enabled, _ := parseStrictBool(get("settings.media.enabled")); !enabled {
		return
	}

	validateOptionalHost(get, "settings.media.endpoint", errs)
	for _, key := range []string{
		"settings.media.endpoint",
		"settings.media.access_key",
		"settings.media.secret_key",
		"settings.media.bucket",
	} {
		validateRequiredString(get, key, errs)
	}
}

// validateWebConfig validates the CORS allow list.
func validateWebConfig(get configGetter, errs *[]string) {
	const key = "settings.web.cors.allowed_origins"
	raw := get(key)
	if raw == nil {
		return
	}

	var origins []string
	switch v := raw.(type) {
	case []string:
		origins = v
	case []any:
		for _, item := range v {
			origin, err := parseStrictString(item)
			if err != nil {
				appendValidationError(errs, "%s must be a list of strings", key)
				return
			}
			origins = append(origins, origin)
		}
	default:
		appendValidationError(errs, "%s must be a list of strings", key)
		return
	}

	for _, origin := range origins {
		parsed, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") ||
			parsed.Host == "" || strings.Trim(parsed.Path, "/") != "" {
			appendValidationError(errs, "%s has invalid origin %q", key, origin)
		}
	}
}

// validateRequiredString validates a required non-empty string key.
func validateRequiredString(get configGetter, key string, errs *[]string) {
	if get(key) == nil {
		appendValidationError(errs, "%s is required", key)
		return
	}

	validateOptionalStringNonEmpty(get, key, errs)
}

// validateOptionalHost validates an optionally configured `host[:port]` key.
func validateOptionalHost(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, err := parseStrictString(raw)
	if err != nil || !isValidHost(value) {
		appendValidationError(errs, "%s must be a host without scheme or path", key)
	}
}

// validateOptionalDuration validates a duration given as "15m" or as integer seconds.
func validateOptionalDuration(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if value, err := parseStrictString(raw); err == nil {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			appendValidationError(errs, "%s must be a duration like 15m", key)
			return
		}
		if d <= 0 {
			appendValidationError(errs, "%s must be positive", key)
		}
		return
	}

	seconds, err := parseStrictInt(raw)
	if err != nil {
		appendValidationError(errs, "%s must be a duration like 15m", key)
		return
	}
	if seconds <= 0 {
		appendValidationError(errs, "%s must be positive", key)
	}
}

// validateOptionalBool validates an optionally configured boolean key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalBool(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	if _, ok := parseStrictBool(raw); !ok {
		appendValidationError(errs, "%s must be a boolean", key)
	}
}

// validateOptionalIntMin validates an optionally configured integer key with a minimum constraint.
// It accepts a getter, the key, a minimum value, and an error collector pointer and appends validation errors.
func validateOptionalIntMin(get configGetter, key string, min int, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictInt(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be an integer", key)
		return
	}

	if value < min {
		appendValidationError(errs, "%s must be >= %d", key, min)
	}
}

// validateOptionalURL validates an optionally configured absolute URL key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalURL(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string URL", key)
		return
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		appendValidationError(errs, "%s must not be empty", key)
		return
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		appendValidationError(errs, "%s must be a valid absolute URL", key)
	}
}

// validateOptionalStringNonEmpty validates an optionally configured non-empty string key.
// It accepts a getter, the key, and an error collector pointer and appends validation errors.
func validateOptionalStringNonEmpty(get configGetter, key string, errs *[]string) {
	raw := get(key)
	if raw == nil {
		return
	}

	value, parseErr := parseStrictString(raw)
	if parseErr != nil {
		appendValidationError(errs, "%s must be a string", key)
		return
	}

	if strings.TrimSpace(value) == "" {
		appendValidationError(errs, "%s must not be empty", key)
	}
}

// parseStrictBool parses a value as boolean using strict conversion rules.
// It accepts a raw value and returns the parsed boolean and whether parsing succeeded.
func parseStrictBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		if math.Trunc(v) != v {
			return false, false
		}
		return int64(v) != 0, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false, false
		}
		switch strings.ToLower(trimmed) {
		case "true", "1", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}

// parseStrictInt parses a value as a strict integer.
// It accepts a raw value and returns the parsed int and an error when parsing fails.
func parseStrictInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if math.Trunc(v) != v {
			return 0, errors.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, errors.New("empty integer string")
		}
		parsed, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, errors.Wrap(err, "atoi")
		}
		return parsed, nil
	default:
		return 0, errors.Errorf("unsupported int type %T", value)
	}
}

// parseStrictString parses a value as a strict string.
// It accepts a raw value and returns the parsed string and an error when parsing fails.
func parseStrictString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.Errorf("unsupported string type %T", value)
	}
}

// isValidHost validates a host string without scheme or path components.
// It accepts a host string and returns true when the host is syntactically acceptable.
func isValidHost(host string) bool {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return false
	}
	if strings.Contains(trimmed, "://") || strings.Contains(trimmed, "/") {
		return false
	}
	return true
}

// appendValidationError appends a formatted validation error to the collector.
// It accepts an error slice pointer, a format string, and format arguments, and has no return value.
func appendValidationError(errs *[]string, format string, args ...any) {
	if errs == nil {
		return
	}
	*errs = append(*errs, fmt.Sprintf(format, args...))
}
