package payment

import (
	"regexp"
	"strings"
)

// ValidationKind identifies which input rule failed.
type ValidationKind string

const (
	ValidationPhoneEmpty  ValidationKind = "phone_empty"
	ValidationPhoneLength ValidationKind = "phone_length"
	ValidationPhonePrefix ValidationKind = "phone_prefix"
	ValidationAmount      ValidationKind = "amount"
)

// ValidationError is a rejected input. Message is shown to the user as is.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	tenDigits     = regexp.MustCompile(`^[0-9]{10}$`)
	phonePrefixes = []string{"07", "05", "01"}
)

// ValidatePhone strips all whitespace from phone and checks, in order, that
// it is non-empty, exactly 10 digits, and starts with an accepted operator
// prefix. It returns the stripped number.
func ValidatePhone(phone string) (string, error) {
	clean := strings.Join(strings.Fields(phone), "")

	if clean == "" {
		return "", &ValidationError{Kind: ValidationPhoneEmpty, Message: "Phone number is required"}
	}
	if !tenDigits.MatchString(clean) {
		return "", &ValidationError{Kind: ValidationPhoneLength, Message: "Phone number must contain 10 digits"}
	}
	for _, p := range phonePrefixes {
		if strings.HasPrefix(clean, p) {
			return clean, nil
		}
	}
	return "", &ValidationError{Kind: ValidationPhonePrefix, Message: "Phone number is not correct!"}
}

func validateAmount(amount int64) (Tier, error) {
	tier, ok := LookupTier(amount)
	if !ok {
		return Tier{}, &ValidationError{
			Kind:    ValidationAmount,
			Message: "Amount must be one of 200, 400, 500, 1000, 3000 or 5000",
		}
	}
	return tier, nil
}
