// Package main is the interactive keywarden client: an authenticated
// shell over the vault API with local password generation, strength
// scoring and breach checking.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/keywarden/keywarden/internal/breach"
	"github.com/keywarden/keywarden/internal/client/session"
	"github.com/keywarden/keywarden/internal/client/vault"
	"github.com/keywarden/keywarden/internal/config"
	"github.com/keywarden/keywarden/internal/logger"
	"github.com/keywarden/keywarden/internal/models"
	"github.com/keywarden/keywarden/internal/policy"
)

var (
	version   string
	buildDate string
)

const requestTimeout = 15 * time.Second

// shell holds the REPL state.
type shell struct {
	client    *vault.Client
	debouncer *breach.Debouncer
	scanner   *bufio.Scanner
}

func (s *shell) prompt(label string) string {
	fmt.Print(label)
	if !s.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(s.scanner.Text())
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// repl runs the interactive shell loop.
func (s *shell) repl() {
	defer s.debouncer.Stop()

	for {
		fmt.Print("keywarden> ")
		if !s.scanner.Scan() {
			break
		}
		line := strings.TrimSpace(s.scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, register, login, logout, lock, unlock,")
			fmt.Println("  list [search], notes, show <id>, add, note, edit <id>, rm <id>,")
			fmt.Println("  gen [length], score <password>, check <password>,")
			fmt.Println("  categories, addcat <name>, logs, summary, exit")
		case "register":
			s.register()
		case "login":
			s.login()
		case "logout":
			s.client.Logout()
			fmt.Println("Logged out")
		case "lock":
			s.client.Lock()
			fmt.Println("Vault locked")
		case "unlock":
			s.unlock()
		case "list":
			search := ""
			if len(args) > 1 {
				search = args[1]
			}
			s.list(search)
		case "notes":
			s.listNotes()
		case "show":
			if len(args) < 2 {
				fmt.Println("Usage: show <id>")
				continue
			}
			s.show(args[1])
		case "add":
			s.add(false)
		case "note":
			s.add(true)
		case "edit":
			if len(args) < 2 {
				fmt.Println("Usage: edit <id>")
				continue
			}
			s.edit(args[1])
		case "rm":
			if len(args) < 2 {
				fmt.Println("Usage: rm <id>")
				continue
			}
			s.remove(args[1])
		case "gen":
			s.generate(args[1:])
		case "score":
			if len(args) < 2 {
				fmt.Println("Usage: score <password>")
				continue
			}
			strength := policy.Score(args[1])
			fmt.Printf("%s (%d/4)\n", strength.Label, strength.Score)
		case "check":
			if len(args) < 2 {
				fmt.Println("Usage: check <password>")
				continue
			}
			s.check(args[1])
		case "categories":
			s.categories()
		case "addcat":
			if len(args) < 2 {
				fmt.Println("Usage: addcat <name>")
				continue
			}
			s.addCategory(strings.Join(args[1:], " "))
		case "logs":
			s.logs()
		case "summary":
			s.logsSummary()
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func (s *shell) register() {
	email := s.prompt("Email: ")
	password := s.prompt("Password (also your master password): ")

	ctx, cancel := withTimeout()
	defer cancel()
	if err := s.client.Register(ctx, email, password); err != nil {
		fmt.Println("Registration failed:", err)
		return
	}
	fmt.Println("Registered. Vault is unlocked.")
}

func (s *shell) login() {
	email := s.prompt("Email: ")
	password := s.prompt("Master password: ")

	ctx, cancel := withTimeout()
	defer cancel()
	if err := s.client.Login(ctx, email, password); err != nil {
		fmt.Println("Login failed:", err)
		return
	}
	fmt.Println("Logged in. Vault is unlocked.")
}

func (s *shell) unlock() {
	if s.client.Session().IsPresent() {
		fmt.Println("Vault is already unlocked")
		return
	}
	candidate := s.prompt("Master password: ")

	ctx, cancel := withTimeout()
	defer cancel()
	err := s.client.Unlock(ctx, candidate)
	switch {
	case err == nil:
		fmt.Println("Vault unlocked")
	case errors.Is(err, vault.ErrAuthRequired):
		fmt.Println("Session expired, please login again")
	case errors.Is(err, vault.ErrInvalidSecret):
		fmt.Println("Wrong master password")
	default:
		var rl *vault.RateLimitedError
		if errors.As(err, &rl) {
			fmt.Printf("Too many attempts, retry in %s\n", rl.RetryAfter.Round(time.Second))
			return
		}
		fmt.Println("Unlock failed:", err)
	}
}

func (s *shell) list(search string) {
	ctx, cancel := withTimeout()
	defer cancel()
	items, err := s.client.List(ctx, "", search)
	if err != nil {
		s.reportError(err)
		return
	}
	if len(items) == 0 {
		fmt.Println("Vault is empty")
		return
	}
	for _, item := range items {
		fmt.Printf("%s  %-20s %s\n", item.ID, item.Name, item.Username)
	}
}

func (s *shell) listNotes() {
	ctx, cancel := withTimeout()
	defer cancel()
	items, err := s.client.ListNotes(ctx)
	if err != nil {
		s.reportError(err)
		return
	}
	if len(items) == 0 {
		fmt.Println("No notes")
		return
	}
	for _, item := range items {
		fmt.Printf("%s  %s\n", item.ID, item.Name)
	}
}

// show decrypts one item. When the vault is locked, the master password
// is collected for this one call; a successful decrypt also unlocks the
// session, since the backend just proved the secret correct.
func (s *shell) show(id string) {
	secret, unlocked := s.client.Session().Secret()
	if !unlocked {
		secret = s.prompt("Master password: ")
	}

	ctx, cancel := withTimeout()
	defer cancel()
	view, err := s.client.Decrypt(ctx, id, secret)
	if err != nil {
		var rl *vault.RateLimitedError
		switch {
		case errors.As(err, &rl):
			fmt.Printf("Too many attempts, retry in %s\n", rl.RetryAfter.Round(time.Second))
		case errors.Is(err, vault.ErrInvalidSecret):
			fmt.Println("Wrong master password")
		case errors.Is(err, vault.ErrNotFound):
			fmt.Println("Item not found")
		default:
			s.reportError(err)
		}
		return
	}
	defer view.Close()

	if !unlocked {
		s.client.Session().SetSecret(secret)
	}
	fmt.Printf("Password: %s (clears from memory in %s)\n", view.Plaintext(), view.Remaining().Round(time.Second))
}

func (s *shell) add(note bool) {
	req := models.ItemRequest{Name: s.prompt("Name: ")}
	if !note {
		req.Username = s.prompt("Username: ")
	}
	req.Password = s.prompt("Password (empty to generate): ")
	if req.Password == "" {
		generated, err := policy.Generate(policy.Options{})
		if err != nil {
			fmt.Println("Generation failed:", err)
			return
		}
		req.Password = generated
		fmt.Println("Generated:", generated)
	}
	req.Note = s.prompt("Note: ")

	ctx, cancel := withTimeout()
	defer cancel()
	var (
		item    *models.VaultItem
		warning string
		err     error
	)
	if note {
		item, warning, err = s.client.CreateNote(ctx, req)
	} else {
		item, warning, err = s.client.Create(ctx, req)
	}
	if err != nil {
		s.reportError(err)
		return
	}
	fmt.Println("Stored with id", item.ID)
	if warning != "" {
		fmt.Println("Warning:", warning)
	}
}

func (s *shell) edit(id string) {
	req := models.ItemRequest{
		Name:     s.prompt("Name: "),
		Username: s.prompt("Username: "),
		Password: s.prompt("Password: "),
		Note:     s.prompt("Note: "),
	}

	ctx, cancel := withTimeout()
	defer cancel()
	item, err := s.client.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			fmt.Println("Item not found")
			return
		}
		s.reportError(err)
		return
	}
	fmt.Println("Updated", item.ID)
}

func (s *shell) remove(id string) {
	ctx, cancel := withTimeout()
	defer cancel()
	if err := s.client.Delete(ctx, id); err != nil {
		if errors.Is(err, vault.ErrNotFound) {
			fmt.Println("Item not found")
			return
		}
		s.reportError(err)
		return
	}
	fmt.Println("Deleted")
}

func (s *shell) generate(args []string) {
	opts := policy.Options{}
	if len(args) > 0 {
		length, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("Usage: gen [length]")
			return
		}
		opts.Length = length
	}

	password, err := policy.Generate(opts)
	if err != nil {
		fmt.Println("Generation failed:", err)
		return
	}
	strength := policy.Score(password)
	fmt.Printf("%s  [%s]\n", password, strength.Label)
}

// check submits the candidate to the debounced breach checker. The
// verdict prints asynchronously once the quiet period elapses.
func (s *shell) check(password string) {
	s.debouncer.Submit(password, func(result breach.Result) {
		switch {
		case result.Unknown():
			fmt.Println("\nBreach status unknown (lookup failed); do not assume the password is safe")
		case result.Pwned:
			fmt.Printf("\nFound in %d breaches (severity: %s)\n", result.Count, result.Severity)
		default:
			fmt.Println("\nNot found in known breaches")
		}
	})
	fmt.Println("Checking...")
}

func (s *shell) categories() {
	ctx, cancel := withTimeout()
	defer cancel()
	categories, err := s.client.Categories(ctx)
	if err != nil {
		s.reportError(err)
		return
	}
	for _, c := range categories {
		fmt.Printf("%s  %s\n", c.ID, c.Name)
	}
}

func (s *shell) addCategory(name string) {
	ctx, cancel := withTimeout()
	defer cancel()
	category, err := s.client.CreateCategory(ctx, name)
	if err != nil {
		s.reportError(err)
		return
	}
	fmt.Println("Created category", category.ID)
}

func (s *shell) logs() {
	ctx, cancel := withTimeout()
	defer cancel()
	entries, err := s.client.Logs(ctx)
	if err != nil {
		s.reportError(err)
		return
	}
	for _, entry := range entries {
		fmt.Printf("%s  %-16s %s\n", entry.CreatedAt.Format(time.RFC3339), entry.Action, entry.ItemID)
	}
}

func (s *shell) logsSummary() {
	ctx, cancel := withTimeout()
	defer cancel()
	summary, err := s.client.LogsSummary(ctx)
	if err != nil {
		s.reportError(err)
		return
	}
	fmt.Println("Total:", summary.Total)
	for action, count := range summary.ByAction {
		fmt.Printf("  %-16s %d\n", action, count)
	}
}

func (s *shell) reportError(err error) {
	switch {
	case errors.Is(err, vault.ErrAuthRequired):
		fmt.Println("Please login first")
	case errors.Is(err, vault.ErrLocked):
		fmt.Println("Vault is locked; run 'unlock' first")
	default:
		fmt.Println("Error:", err)
	}
}

func main() {
	options := config.Parse()

	if flag.Arg(0) == "version" {
		fmt.Printf("keywarden client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Println("failed to init logger:", err)
		os.Exit(1)
	}

	sess := session.New()
	tokens := session.NewTokenStore(options.TokenFile)
	client := vault.NewClient(nil, options.ServerURL, tokens, sess, log.Log)

	advisor := breach.NewAdvisor(nil, options.BreachURL, log.Log)
	debouncer := breach.NewDebouncer(advisor, breach.DefaultQuiet)

	if client.LoggedIn() {
		fmt.Println("Restored session: logged in, vault locked. Run 'unlock'.")
	} else {
		fmt.Println("Welcome to keywarden. Run 'register' or 'login'.")
	}

	s := &shell{
		client:    client,
		debouncer: debouncer,
		scanner:   bufio.NewScanner(os.Stdin),
	}
	s.repl()
}
