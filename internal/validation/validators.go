// Package validation contains pure input validators for the order flow.
// Every validator takes raw user text and returns either a normalized value or
// a *FieldError whose message is sent back to the user as-is.
package validation

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldError carries a user-facing correction message for rejected input.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalid(msg string) *FieldError {
	return &FieldError{Message: msg}
}

// IsFieldError reports whether err is a validation rejection.
func IsFieldError(err error) bool {
	_, ok := err.(*FieldError)
	return ok
}

const (
	nameMinLen = 2
	nameMaxLen = 100
	maxTextLen = 500
)

var (
	namePattern  = regexp.MustCompile(`^[\p{L} ]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitPattern = regexp.MustCompile(`\D`)
	scriptTagRe  = regexp.MustCompile(`(?is)<script.*?>.*?</script.*?>`)
	angleRe      = regexp.MustCompile(`[<>]`)
	moneyRe      = regexp.MustCompile(`[\d.,]+`)
)

// Name is a validated full name split into first and last parts.
type Name struct {
	Full  string
	First string
	Last  string
}

// ValidateName checks a full name: 2..100 characters, letters and spaces only,
// at least first and last name.
func ValidateName(raw string) (Name, error) {
	trimmed := strings.TrimSpace(raw)

	if len([]rune(trimmed)) < nameMinLen || len([]rune(trimmed)) > nameMaxLen {
		return Name{}, invalid("O nome deve ter entre 2 e 100 caracteres. Pode digitar novamente?")
	}

	if !namePattern.MatchString(trimmed) {
		return Name{}, invalid("O nome deve conter apenas letras. Pode digitar novamente, sem números ou símbolos?")
	}

	parts := strings.Fields(trimmed)
	if len(parts) < 2 {
		return Name{}, invalid("Preciso do seu nome *completo* (nome e sobrenome). Pode digitar novamente?")
	}

	return Name{
		Full:  strings.Join(parts, " "),
		First: parts[0],
		Last:  parts[len(parts)-1],
	}, nil
}

// ValidateEmail normalizes and checks an e-mail address.
func ValidateEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))

	if !emailPattern.MatchString(email) {
		return "", invalid("Esse e-mail não parece válido. 😕 Pode conferir e digitar novamente? (ex: nome@email.com)")
	}

	return email, nil
}

// Phone is a validated Brazilian phone number.
type Phone struct {
	Digits    string
	AreaCode  string
	Formatted string
	Mobile    bool
}

// ValidatePhone accepts 10-digit landlines and 11-digit mobiles (third digit 9)
// with a plausible two-digit area code, returning a display-formatted number.
func ValidatePhone(raw string) (Phone, error) {
	digits := digitPattern.ReplaceAllString(raw, "")

	if len(digits) != 10 && len(digits) != 11 {
		return Phone{}, invalid("O telefone deve ter 10 ou 11 dígitos com DDD (ex: 85 99999-8888). Pode digitar novamente?")
	}

	area := digits[:2]
	if area < "11" || area > "99" {
		return Phone{}, invalid("O DDD informado não parece válido. Pode conferir o número e digitar novamente?")
	}

	mobile := len(digits) == 11
	if mobile && digits[2] != '9' {
		return Phone{}, invalid("Celulares com 11 dígitos devem começar com 9 após o DDD. Pode conferir o número?")
	}

	var formatted string
	if mobile {
		formatted = "(" + area + ") " + digits[2:7] + "-" + digits[7:]
	} else {
		formatted = "(" + area + ") " + digits[2:6] + "-" + digits[6:]
	}

	return Phone{
		Digits:    digits,
		AreaCode:  area,
		Formatted: formatted,
		Mobile:    mobile,
	}, nil
}

// Address is a validated free-text delivery address.
type Address struct {
	Raw string
}

// ValidateAddress applies a length + structure heuristic: at least 10
// characters and a comma or line break separating the components.
func ValidateAddress(raw string) (Address, error) {
	trimmed := strings.TrimSpace(raw)

	if len([]rune(trimmed)) < 10 {
		return Address{}, invalid("O endereço ficou muito curto. Pode enviar o endereço completo, com rua, número e bairro?")
	}

	if !strings.ContainsAny(trimmed, ",\n") {
		return Address{}, invalid("Separe as partes do endereço com vírgula, por favor.\nEx: Rua das Flores, 123, Centro")
	}

	return Address{Raw: trimmed}, nil
}

// ParseChange parses a cash amount ("R$ 100", "100,00") and returns the change
// due against the order total. Amounts below the total are rejected.
func ParseChange(raw string, total decimal.Decimal) (decimal.Decimal, error) {
	match := moneyRe.FindString(strings.TrimSpace(raw))
	if match == "" {
		return decimal.Zero, invalid("Não entendi o valor. 😕 Pode digitar de novo? (ex: R$ 100,00)")
	}

	amount, err := ParseMoney(match)
	if err != nil {
		return decimal.Zero, invalid("Não entendi o valor. 😕 Pode digitar de novo? (ex: R$ 100,00)")
	}

	if amount.LessThan(total) {
		return decimal.Zero, invalid("O valor precisa ser maior ou igual ao total do pedido (" + formatTotal(total) + "). Troco para quanto?")
	}

	return amount.Sub(total), nil
}

// formatTotal renders the amount Brazilian-style. Kept local so this package
// stays import-free of the message catalog, which depends on the order model.
func formatTotal(v decimal.Decimal) string {
	return "R$ " + strings.Replace(v.StringFixed(2), ".", ",", 1)
}

// ParseMoney converts a Brazilian or dotted currency string into a decimal.
// "1.234,56", "1234,56" and "30.00" are all accepted.
func ParseMoney(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		// comma is the decimal separator, dots are thousands
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	return decimal.NewFromString(s)
}

// Sanitize strips script tags and angle brackets and truncates the text before
// it is stored or echoed back.
func Sanitize(raw string) string {
	cleaned := scriptTagRe.ReplaceAllString(raw, "")
	cleaned = angleRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > maxTextLen {
		cleaned = string(runes[:maxTextLen])
	}

	return cleaned
}
