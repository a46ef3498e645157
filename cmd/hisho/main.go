package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ashita-ai/hisho"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("HISHO_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	// Logs go to stderr so the conversation on stdout stays readable.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	stdin := bufio.NewReader(os.Stdin)

	app, err := hisho.New(
		hisho.WithLogger(logger),
		hisho.WithVersion(version),
		hisho.WithDispatcher(builtins()),
		hisho.WithConfirmer(&stdinConfirmer{in: stdin}),
	)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close(context.Background()) }()

	go app.RunCleanup(ctx)

	current, err := app.NewSession(ctx, "")
	if err != nil {
		return fmt.Errorf("initial session: %w", err)
	}

	fmt.Printf("hisho %s — type 'help' for commands\n", version)
	fmt.Printf("session %s (%s)\n", current.ID, current.Name)

	for {
		fmt.Print("> ")
		line, err := readLine(ctx, stdin)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				fmt.Println()
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case line == "exit" || line == "quit":
			return nil

		case line == "help":
			fmt.Println("commands:")
			fmt.Println("  help               show this help")
			fmt.Println("  sessions           list live sessions")
			fmt.Println("  new session [name] start a fresh session")
			fmt.Println("  exit | quit        leave")
			fmt.Println("anything else is sent to the assistant")

		case line == "sessions":
			for _, s := range app.Sessions() {
				marker := " "
				if s.ID == current.ID {
					marker = "*"
				}
				fmt.Printf("%s %s  %s  last active %s\n", marker, s.ID, s.Name, s.LastActivity.Format(time.RFC3339))
			}

		case strings.HasPrefix(line, "new session"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "new session"))
			current, err = app.NewSession(ctx, name)
			if err != nil {
				fmt.Printf("could not create session: %v\n", err)
				continue
			}
			fmt.Printf("session %s (%s)\n", current.ID, current.Name)

		default:
			turnCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			reply, err := app.HandleText(turnCtx, current.ID, line)
			cancel()
			if err != nil {
				fmt.Printf("something went wrong: %v\n", err)
				continue
			}
			fmt.Println(reply)
		}
	}
}

// readLine reads one line, honoring context cancellation between reads.
func readLine(ctx context.Context, in *bufio.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := in.ReadString('\n')
		ch <- result{line, err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

// stdinConfirmer asks yes/no on the terminal before destructive actions.
type stdinConfirmer struct {
	in *bufio.Reader
}

func (c *stdinConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	fmt.Printf("%s [y/N] ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// builtins is the small demo dispatch table: system time, date, and jokes.
// Real deployments supply their own hisho.Dispatcher with device access.
type builtinTable map[string]func(params map[string]any) (string, error)

func builtins() builtinTable {
	jokes := []string{
		"I told my computer I needed a break, and it said 'no problem, I'll go to sleep.'",
		"Why do programmers prefer dark mode? Because light attracts bugs.",
		"There are only two hard things in computer science: cache invalidation, naming things, and off-by-one errors.",
	}
	return builtinTable{
		"get_current_time": func(_ map[string]any) (string, error) {
			return time.Now().Format("15:04"), nil
		},
		"get_current_date": func(_ map[string]any) (string, error) {
			return time.Now().Format("Monday, 2 January 2006"), nil
		},
		"get_random_joke": func(_ map[string]any) (string, error) {
			return jokes[rand.Intn(len(jokes))], nil
		},
	}
}

func (t builtinTable) Dispatch(_ context.Context, kind, target string, params map[string]any) (string, error) {
	fn, ok := t[target]
	if !ok {
		return "", fmt.Errorf("no %s handler for target %q", kind, target)
	}
	return fn(params)
}
