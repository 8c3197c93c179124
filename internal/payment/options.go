// Package payment holds the payment method menu, the payment-link client, and
// the background payment-status poller.
package payment

import (
	"strconv"
	"strings"
)

// Payment method types.
const (
	TypePix            = "pix"
	TypeCreditCard     = "credit_card"
	TypePicPay         = "picpay"
	TypePagSeguro      = "pagseguro"
	TypeCash           = "cash"
	TypeCardOnDelivery = "card_on_delivery"
	TypeVoucher        = "voucher"
)

// Gateways for digital payments.
const (
	GatewayMercadoPago = "mercadopago"
	GatewayPicPay      = "picpay"
	GatewayPagSeguro   = "pagseguro"
)

// Method is one entry of the fixed payment menu.
type Method struct {
	Choice   int
	Type     string
	Gateway  string
	Label    string
	Digital  bool
	keywords []string
}

// Options is the fixed payment menu, matched by number or keyword.
var Options = []Method{
	{Choice: 1, Type: TypePix, Gateway: GatewayMercadoPago, Label: "PIX", Digital: true, keywords: []string{"pix"}},
	{Choice: 2, Type: TypeCreditCard, Gateway: GatewayMercadoPago, Label: "Cartão de crédito (online)", Digital: true, keywords: []string{"crédito", "credito"}},
	{Choice: 3, Type: TypePicPay, Gateway: GatewayPicPay, Label: "PicPay", Digital: true, keywords: []string{"picpay"}},
	{Choice: 4, Type: TypePagSeguro, Gateway: GatewayPagSeguro, Label: "PagSeguro", Digital: true, keywords: []string{"pagseguro"}},
	{Choice: 5, Type: TypeCash, Label: "Dinheiro (na entrega)", keywords: []string{"dinheiro", "especie", "espécie"}},
	{Choice: 6, Type: TypeCardOnDelivery, Label: "Cartão na entrega (maquininha)", keywords: []string{"maquininha", "cartão na entrega", "cartao na entrega"}},
	{Choice: 7, Type: TypeVoucher, Label: "Vale-refeição (na entrega)", keywords: []string{"vale", "refeição", "refeicao"}},
}

// MatchOption resolves user input into a payment method, either by the menu
// number or by a case-insensitive keyword match.
func MatchOption(input string) (Method, bool) {
	trimmed := strings.TrimSpace(input)

	if n, err := strconv.Atoi(trimmed); err == nil {
		for _, opt := range Options {
			if opt.Choice == n {
				return opt, true
			}
		}
		return Method{}, false
	}

	lowered := strings.ToLower(trimmed)
	for _, opt := range Options {
		for _, kw := range opt.keywords {
			if strings.Contains(lowered, kw) {
				return opt, true
			}
		}
	}

	return Method{}, false
}

// MenuText renders the numbered payment menu.
func MenuText() string {
	var b strings.Builder
	b.WriteString("Como você prefere pagar? 💳\n\n")
	for _, opt := range Options {
		b.WriteString(strconv.Itoa(opt.Choice))
		b.WriteString(". ")
		b.WriteString(opt.Label)
		b.WriteString("\n")
	}
	b.WriteString("\nResponda com o número ou o nome da opção.")
	return b.String()
}
