package messages

import (
	"fmt"
	"strings"

	"github.com/sabordigital/zappedido/internal/order"
)

const (
	ConfirmOrderRetry = "Não entendi. 😅 Responda *1* (sim) para confirmar o pedido, *2* (editar) para alterar ou *3* para cancelar."

	OrderConfirmedHint = "Seu pedido está confirmado! 🎉\n" +
		"Digite *status* para acompanhar ou envie um novo resumo do carrinho para pedir de novo."

	DeliveredThanks = "Pedido entregue! Obrigado pela preferência, bom apetite! 😋"

	SlowDown = "Calma! 😅 Recebi muitas mensagens suas em pouco tempo. Aguarde um instante e tente de novo."
)

// OrderConfirmation renders the parsed cart back to the user for review.
func OrderConfirmation(d *order.Draft) string {
	var b strings.Builder
	b.WriteString("Recebi seu pedido! 🛒\n\n")
	for _, item := range d.Items {
		fmt.Fprintf(&b, "• %dx %s — %s\n", item.Quantity, item.Name, Money(item.LineTotal()))
	}
	fmt.Fprintf(&b, "\n*Total: %s*\n\n", Money(d.Total))
	b.WriteString("Está tudo certo?\n1️⃣ *Sim*, confirmar\n2️⃣ *Editar* o pedido\n3️⃣ *Cancelar*")
	return b.String()
}

// OrderTotals renders the totals after the delivery fee is applied.
func OrderTotals(d *order.Draft) string {
	var b strings.Builder
	b.WriteString("Endereço confirmado! 📍\n\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", Money(d.Subtotal))
	if d.DeliveryFee.IsZero() {
		b.WriteString("Entrega: grátis 🎉\n")
	} else {
		fmt.Fprintf(&b, "Entrega: %s\n", Money(d.DeliveryFee))
	}
	fmt.Fprintf(&b, "*Total: %s*", Money(d.Total))
	return b.String()
}

// SavedAddressPrompt asks for the address, offering the last one on file.
func SavedAddressPrompt(lastAddress string) string {
	return fmt.Sprintf(
		"Entregamos no mesmo endereço da última vez?\n%s\n\nSe sim, é só reenviar o endereço acima. Se não, me mande o novo endereço completo.",
		lastAddress,
	)
}

// PaymentLink delivers the generated payment link or PIX code.
func PaymentLink(url, qrCode string) string {
	var b strings.Builder
	b.WriteString("Prontinho! Finalize o pagamento por aqui: 💳\n")
	if url != "" {
		b.WriteString(url)
	}
	if qrCode != "" {
		if url != "" {
			b.WriteString("\n\n")
		}
		b.WriteString("Ou copie o código PIX:\n")
		b.WriteString(qrCode)
	}
	return b.String()
}

// CashChangeConfirmed acknowledges the change amount for cash payments.
func CashChangeConfirmed(change string) string {
	if change == "R$ 0,00" {
		return "Combinado, sem troco. 👍"
	}
	return fmt.Sprintf("Combinado! O entregador vai levar %s de troco. 👍", change)
}

// OnDeliveryConfirmed confirms an order paid on delivery.
func OnDeliveryConfirmed(label string) string {
	return fmt.Sprintf("Pedido confirmado! 🎉 Pagamento na entrega: %s.\n\nJá estamos preparando tudo. Digite *status* para acompanhar.", label)
}
