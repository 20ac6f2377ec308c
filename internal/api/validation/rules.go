package validation

import (
	"context"
	"encoding/json"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func IsString(msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if _, ok := v.(string); !ok {
			return v, msg
		}
		return v, ""
	}
}

// Trim trims strings and passes other values through.
func Trim() Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), ""
		}
		return v, ""
	}
}

func NotEmpty(msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if s, ok := v.(string); !ok || s == "" {
			return v, msg
		}
		return v, ""
	}
}

func MinLen(n int, msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if s, _ := v.(string); utf8.RuneCountInString(s) < n {
			return v, msg
		}
		return v, ""
	}
}

func MaxLen(n int, msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if s, _ := v.(string); utf8.RuneCountInString(s) > n {
			return v, msg
		}
		return v, ""
	}
}

func IsEmail(msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		s, _ := v.(string)
		if !isEmail(s) {
			return v, msg
		}
		return v, ""
	}
}

func isEmail(s string) bool {
	if !emailShape.MatchString(s) {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func OneOf(msg string, allowed ...string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if s, ok := v.(string); !ok || !slices.Contains(allowed, s) {
			return v, msg
		}
		return v, ""
	}
}

// StrictBool accepts only JSON true and false.
func StrictBool(msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if _, ok := v.(bool); !ok {
			return v, msg
		}
		return v, ""
	}
}

// toInt accepts integral JSON numbers and, for query strings, decimal text.
func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// IsInt converts the value to int64 for the rules after it.
func IsInt(msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		n, ok := toInt(v)
		if !ok {
			return v, msg
		}
		return n, ""
	}
}

func MinInt(min int64, msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if n, _ := v.(int64); n < min {
			return v, msg
		}
		return v, ""
	}
}

func MaxInt(max int64, msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if n, _ := v.(int64); n > max {
			return v, msg
		}
		return v, ""
	}
}

// Custom adapts a check that needs the whole document.
func Custom(fn func(ctx context.Context, v any, doc Doc) string) Rule {
	return func(ctx context.Context, v any, doc Doc) (any, string) {
		return v, fn(ctx, v, doc)
	}
}

// ArrayLen checks bounds and converts the value to []any.
func ArrayLen(min, max int, minMsg, maxMsg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		arr, ok := v.([]any)
		if !ok || len(arr) < min {
			return v, minMsg
		}
		if len(arr) > max {
			return v, maxMsg
		}
		return arr, ""
	}
}

func IsURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func URL(msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		if s, _ := v.(string); !IsURL(s) {
			return v, msg
		}
		return v, ""
	}
}

// EachURL requires every element to be a URL string and converts the value
// to []string.
func EachURL(msg string) Rule {
	return func(_ context.Context, v any, _ Doc) (any, string) {
		arr, _ := v.([]any)
		urls := make([]string, 0, len(arr))
		for _, el := range arr {
			s, ok := el.(string)
			if !ok || !IsURL(s) {
				return v, msg
			}
			urls = append(urls, s)
		}
		return urls, ""
	}
}

type ImageValidator interface {
	ValidateImages(ctx context.Context, urls []string) bool
}

// Images rejects the whole array when any element is not accepted by iv.
func Images(iv ImageValidator, msg string) Rule {
	return func(ctx context.Context, v any, _ Doc) (any, string) {
		urls, _ := v.([]string)
		if !iv.ValidateImages(ctx, urls) {
			return v, msg
		}
		return v, ""
	}
}
