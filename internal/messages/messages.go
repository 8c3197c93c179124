// Package messages centralizes every user-facing text sent by the bot.
package messages

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	MainMenu = "Olá! 👋 Bem-vindo ao ZapPedido!\n\n" +
		"Para fazer um pedido, envie o resumo do seu carrinho pelo nosso cardápio digital.\n\n" +
		"Comandos disponíveis:\n" +
		"• *cardapio* — link do cardápio\n" +
		"• *status* — acompanhar seu pedido\n" +
		"• *ajuda* — ver esta mensagem\n" +
		"• *atendente* — falar com uma pessoa"

	Help = "Posso te ajudar com:\n" +
		"• *cardapio* — link do cardápio\n" +
		"• *status* — acompanhar seu pedido\n" +
		"• *cancelar* — cancelar o atendimento atual\n" +
		"• *atendente* — falar com uma pessoa"

	Cancelled = "Tudo bem, pedido cancelado. Quando quiser pedir de novo, é só mandar o resumo do carrinho. 😊"

	SummaryNotUnderstood = "Desculpe, não consegui entender o resumo do pedido. 😕\n" +
		"Pode enviar novamente pelo cardápio digital? Se preferir, digite *atendente* para falar com uma pessoa."

	AskName  = "Para continuar, preciso de alguns dados.\n\nQual é o seu *nome completo*?"
	AskEmail = "Obrigado! Agora me informe o seu *e-mail*:"

	AskAddress = "Agora me informe o *endereço de entrega* completo " +
		"(rua, número, bairro e complemento):"

	AskPaymentChange = "Troco para quanto? (ex: R$ 100,00)\nSe não precisar de troco, digite o valor exato do pedido."

	WaitingPayment = "Seu pagamento está sendo processado. ⏳\n" +
		"Assim que for aprovado eu te aviso por aqui. Se quiser cancelar, digite *cancelar*."

	PaymentApproved = "Pagamento aprovado! ✅\nSeu pedido foi confirmado e já está sendo preparado. 🍳"
	PaymentRejected = "O pagamento não foi aprovado. 😕\nVamos tentar de novo? Escolha a forma de pagamento:"
	PaymentTimeout  = "Não recebemos a confirmação do pagamento a tempo. " +
		"Vou te transferir para um atendente para resolvermos juntos."

	PaymentLinkFailed = "Não consegui gerar o link de pagamento agora. 😕\n" +
		"Pode escolher a forma de pagamento novamente, por favor?"

	OrderCreateFailed = "Tivemos um problema ao registrar seu pedido. 😕\n" +
		"Pode tentar novamente em instantes?"

	Escalated = "Vou te transferir para um de nossos atendentes. 🧑‍🍳\n" +
		"Aguarde um momento que já vamos te responder por aqui."

	SupportWaiting = "Um atendente já foi avisado e vai te responder por aqui. " +
		"Para voltar ao início, digite *menu*."

	GenericError = "Ops, algo deu errado por aqui. 😅 Tente novamente em instantes, por favor."

	AskOrderEdit = "Sem problemas! Envie o novo resumo do carrinho pelo cardápio digital, " +
		"ou digite *voltar* para manter o pedido como está."

	NoActiveOrder = "Você ainda não tem nenhum pedido em andamento. " +
		"Envie o resumo do carrinho para começar. 🛒"

	FollowUp = "Oi! Seu pedido continua em preparo. 🍳 Qualquer novidade eu te aviso por aqui!"
)

// Menu returns the digital menu link message.
func Menu(url string) string {
	return fmt.Sprintf("Aqui está o nosso cardápio digital: 🍔\n%s\n\nMonte seu carrinho e envie o resumo por aqui!", url)
}

// Money formats a decimal amount using Brazilian currency conventions.
func Money(v decimal.Decimal) string {
	s := v.StringFixed(2)
	// 1234.56 -> 1234,56
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, ',')
			continue
		}
		out = append(out, s[i])
	}
	return "R$ " + string(out)
}

// Greeting addresses a returning customer by first name.
func Greeting(firstName string) string {
	if firstName == "" {
		return "Olá! 👋"
	}
	return fmt.Sprintf("Olá, %s! 👋", firstName)
}

// OrderStatus reports the backend status of an order in user terms.
func OrderStatus(status string) string {
	switch status {
	case "pending":
		return "Seu pedido foi recebido e está aguardando confirmação. ⏳"
	case "preparing":
		return "Seu pedido está em preparo! 🍳"
	case "delivering":
		return "Seu pedido saiu para entrega! 🛵"
	case "delivered":
		return "Seu pedido foi entregue. Bom apetite! 😋"
	case "cancelled":
		return "Este pedido foi cancelado."
	default:
		return "Seu pedido está em andamento. Qualquer novidade eu te aviso por aqui!"
	}
}
