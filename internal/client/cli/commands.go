package cli

import (
	"context"
	"fmt"
)

// ErrUnknownCommand - команда не распознана
type ErrUnknownCommand struct {
	Command string
}

func (e *ErrUnknownCommand) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Command)
}

// Run выполняет команду; args - аргументы после имени команды
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	case "checkout":
		return c.runCheckout(ctx, args)
	case "orders":
		return c.runOrders(ctx)
	default:
		return &ErrUnknownCommand{Command: command}
	}
}
