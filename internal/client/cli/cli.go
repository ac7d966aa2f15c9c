package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/themeshop/internal/client/auth"
	"github.com/iudanet/themeshop/internal/client/iocli"
)

// PasswordEnv - переменная окружения с паролем для неинтерактивного входа
const PasswordEnv = "THEMESHOP_PASSWORD"

// Passwords - неинтерактивные источники пароля
type Passwords struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	io        iocli.IO
	service   auth.Service
	passwords Passwords
}

func New(io iocli.IO, service auth.Service, passwords Passwords) *Cli {
	return &Cli{
		io:        io,
		service:   service,
		passwords: passwords,
	}
}

// getPassword retrieves account password from various sources with priority:
// 1. Environment variable THEMESHOP_PASSWORD
// 2. File specified in --password-file
// 3. Command-line parameter --password
// 4. Interactive prompt (fallback)
func (c *Cli) getPassword(prompt string) (string, error) {
	// Priority 1: Environment variable
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: CLI parameter
	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, nil
	}

	// Priority 4: Interactive prompt (fallback)
	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	return password, nil
}

// interactivePassword сообщает, что пароль будет запрошен в терминале
func (c *Cli) interactivePassword() bool {
	return os.Getenv(PasswordEnv) == "" && c.passwords.FromFile == "" && c.passwords.FromArgs == ""
}

func PrintUsage(io iocli.IO) {
	io.Println("ThemeShop Client")
	io.Println()
	io.Println("Usage:")
	io.Println("  themeshop [OPTIONS] COMMAND")
	io.Println()
	io.Println("Options:")
	io.Println("  --version              Show version information")
	io.Println("  --server URL           Server URL (default: http://localhost:8080)")
	io.Println("  --db PATH              Path to local session database (default: themeshop-client.db)")
	io.Println("  --password PASSWORD    Account password (not recommended, use env var or file)")
	io.Println("  --password-file PATH   Path to file containing account password")
	io.Println()
	io.Println("Password Priority (highest to lowest):")
	io.Println("  1. THEMESHOP_PASSWORD environment variable")
	io.Println("  2. --password-file (file path)")
	io.Println("  3. --password (command line)")
	io.Println("  4. Interactive prompt (fallback)")
	io.Println()
	io.Println("Commands:")
	io.Println("  register                Register new account")
	io.Println("  login                   Login to server")
	io.Println("  logout                  Logout and revoke session")
	io.Println("  status                  Show session status")
	io.Println("  checkout <items.json>   Start payment for a cart")
	io.Println("  orders                  Show purchases and canceled orders")
	io.Println()
	io.Println("Examples:")
	io.Println("  themeshop register")
	io.Println("  themeshop login")
	io.Println("  themeshop checkout cart.json")
	io.Println("  themeshop --server https://shop.example.com orders")
}
