package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// RequiredString fails on empty or whitespace-only values.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= max
		},
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

func InListCaseInsensitive(field, value string, allowedValues []string) Rule {
	return Rule{
		Check: func() bool {
			for _, allowed := range allowedValues {
				if strings.EqualFold(value, allowed) {
					return true
				}
			}
			return false
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(allowedValues, ", ")),
		},
	}
}

func MaxLenMap[K comparable, V any](field string, value map[K]V, max int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= max
		},
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must have at most %d items", max)},
	}
}

// ValidUUID accepts the canonical 36-character form only.
func ValidUUID(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if len(value) != 36 {
				return false
			}
			_, err := uuid.Parse(value)
			return err == nil
		},
		Error: ValidationError{Field: field, Message: "must be a valid UUID"},
	}
}

func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil {
				return false
			}
			local, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || local == "" {
				return false
			}
			if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
				return false
			}
			for part := range strings.SplitSeq(domain, ".") {
				if part == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

func NoControlChars(field, value string) Rule {
	return Rule{
		Check: func() bool {
			for _, char := range value {
				if unicode.IsControl(char) {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "must not contain control characters"},
	}
}

func RequiredTime(field string, value time.Time) Rule {
	return Rule{
		Check: func() bool {
			return !value.IsZero()
		},
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}
