package validation

import "strings"

// Command identifies a global command honored in any conversation state.
type Command string

const (
	CommandCancel  Command = "cancel"
	CommandHelp    Command = "help"
	CommandStatus  Command = "status"
	CommandSupport Command = "support"
	CommandMenu    Command = "menu"
)

// commandWords maps accepted command words (lower case, exact match) to commands.
var commandWords = map[string]Command{
	"cancelar":  CommandCancel,
	"cancela":   CommandCancel,
	"ajuda":     CommandHelp,
	"help":      CommandHelp,
	"status":    CommandStatus,
	"pedido":    CommandStatus,
	"atendente": CommandSupport,
	"humano":    CommandSupport,
	"menu":      CommandMenu,
	"cardapio":  CommandMenu,
	"cardápio":  CommandMenu,
}

// DetectCommand reports whether the text is exactly one of the global command
// words, ignoring case and surrounding whitespace.
func DetectCommand(text string) (Command, bool) {
	word := strings.ToLower(strings.TrimSpace(text))
	cmd, ok := commandWords[word]
	return cmd, ok
}
