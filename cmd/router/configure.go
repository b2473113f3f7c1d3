package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/compresr/ai-request-router/internal/utils"
)

// runConfigureCommand interactively collects a bearer secret for one
// endpoint's auth_secret_ref and writes it into a .env file, masking
// the input the way an interactive terminal session expects.
func runConfigureCommand(args []string) {
	envPath := ".env"
	varName := ""

	i := 0
	for i < len(args) {
		switch args[i] {
		case "--env":
			envPath = argValue(args, &i)
		case "--var":
			varName = argValue(args, &i)
		default:
			fmt.Fprintf(os.Stderr, "unknown option: %s\n", args[i])
			os.Exit(1)
		}
	}

	if varName == "" {
		fmt.Print("Environment variable name for the bearer secret (e.g. ENDPOINT_A_TOKEN): ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		varName = strings.TrimSpace(line)
	}
	if varName == "" {
		fmt.Fprintln(os.Stderr, "a variable name is required")
		os.Exit(1)
	}

	secret, err := readSecret(fmt.Sprintf("Value for %s (input hidden): ", varName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read secret: %v\n", err)
		os.Exit(1)
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "empty secret, aborting")
		os.Exit(1)
	}

	existing, _ := godotenv.Read(envPath)
	if existing == nil {
		existing = map[string]string{}
	}
	existing[varName] = secret

	if err := godotenv.Write(existing, envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", envPath, err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s=%s to %s\n", varName, utils.MaskKey(secret), envPath)
}

// readSecret prompts and reads a line without echoing it, falling
// back to plain stdin when not attached to a terminal (e.g. piped
// input in a script or CI run).
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
