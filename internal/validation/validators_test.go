package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		wantErr   bool
		wantFirst string
		wantLast  string
	}{
		{name: "valid full name", input: "Maria Silva", wantFirst: "Maria", wantLast: "Silva"},
		{name: "accented letters", input: "João César de Souza", wantFirst: "João", wantLast: "Souza"},
		{name: "extra whitespace", input: "  Ana   Paula  ", wantFirst: "Ana", wantLast: "Paula"},
		{name: "single token", input: "Maria", wantErr: true},
		{name: "digit in name", input: "M4ria Silva", wantErr: true},
		{name: "too short", input: "A", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 60) + " " + strings.Repeat("b", 60), wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateName(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, IsFieldError(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantFirst, got.First)
			assert.Equal(t, tc.wantLast, got.Last)
		})
	}
}

func TestValidateEmail(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "valid", input: "maria@example.com", want: "maria@example.com"},
		{name: "uppercase normalized", input: " Maria@Example.COM ", want: "maria@example.com"},
		{name: "missing at", input: "maria.example.com", wantErr: true},
		{name: "missing domain dot", input: "maria@example", wantErr: true},
		{name: "whitespace inside", input: "ma ria@example.com", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateEmail(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidatePhone(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		wantFormatted string
		wantMobile    bool
		wantErr       bool
	}{
		{name: "mobile", input: "85999998888", wantFormatted: "(85) 99999-8888", wantMobile: true},
		{name: "mobile with punctuation", input: "(11) 98888-7777", wantFormatted: "(11) 98888-7777", wantMobile: true},
		{name: "landline", input: "8533334444", wantFormatted: "(85) 3333-4444"},
		{name: "mobile without leading nine", input: "85899998888", wantErr: true},
		{name: "bad area code", input: "05999998888", wantErr: true},
		{name: "too short", input: "859999", wantErr: true},
		{name: "too long", input: "559985999998888", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidatePhone(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantFormatted, got.Formatted)
			assert.Equal(t, tc.wantMobile, got.Mobile)
		})
	}
}

func TestValidateAddress(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "comma separated", input: "Rua das Flores, 123, Centro"},
		{name: "newline separated", input: "Rua das Flores 123\nCentro"},
		{name: "too short", input: "Rua, 1", wantErr: true},
		{name: "no separator", input: "Rua das Flores 123 Centro", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateAddress(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tc.input), got.Raw)
		})
	}
}

func TestParseChange(t *testing.T) {
	total := decimal.RequireFromString("50.00")

	testCases := []struct {
		name       string
		input      string
		wantChange string
		wantErr    bool
	}{
		{name: "above total", input: "R$ 100", wantChange: "50"},
		{name: "brazilian decimals", input: "R$ 100,50", wantChange: "50.5"},
		{name: "exact amount", input: "50,00", wantChange: "0"},
		{name: "below total", input: "R$ 40", wantErr: true},
		{name: "not a number", input: "cem reais", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			change, err := ParseChange(tc.input, total)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, change.Equal(decimal.RequireFromString(tc.wantChange)),
				"expected change %s, got %s", tc.wantChange, change)
		})
	}
}

func TestParseMoney(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{input: "R$ 30.00", want: "30"},
		{input: "30,00", want: "30"},
		{input: "1.234,56", want: "1234.56"},
		{input: "5", want: "5"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseMoney(tc.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
				"expected %s, got %s", tc.want, got)
		})
	}
}

func TestDetectCommand(t *testing.T) {
	testCases := []struct {
		input string
		want  Command
		ok    bool
	}{
		{input: "cancelar", want: CommandCancel, ok: true},
		{input: " CANCELAR ", want: CommandCancel, ok: true},
		{input: "Ajuda", want: CommandHelp, ok: true},
		{input: "atendente", want: CommandSupport, ok: true},
		{input: "status", want: CommandStatus, ok: true},
		{input: "cardapio", want: CommandMenu, ok: true},
		{input: "quero cancelar meu pedido", ok: false},
		{input: "oi", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := DetectCommand(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "strips script tag", input: "oi <script>alert(1)</script> tudo bem", want: "oi  tudo bem"},
		{name: "strips angle brackets", input: "a <b> c", want: "a b c"},
		{name: "plain text untouched", input: "Rua das Flores, 123", want: "Rua das Flores, 123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.input))
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("a", 600)
	assert.Len(t, Sanitize(long), 500)
}

func TestParseChangeRejectionShowsTotal(t *testing.T) {
	_, err := ParseChange("R$ 10", decimal.RequireFromString("73"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "R$ 73,00")
}
