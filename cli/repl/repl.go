// Package repl provides the interactive chat loop for the StudyHall CLI.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/studyhall-ai/studyhall/sdk/agent"
	"github.com/studyhall-ai/studyhall/sdk/knowledge"
)

// REPL is the interactive command loop. Plain input is sent to the
// assistant; slash commands are handled locally.
type REPL struct {
	assistant *agent.Assistant
	knowledge *knowledge.Service
	commands  map[string]Command
	sessionID string
	ctx       context.Context
	cancel    context.CancelFunc
}

// Command represents a slash command.
type Command struct {
	Name        string
	Description string
	Handler     func(args string) error
}

// New creates a REPL with the built-in commands registered.
func New(assistant *agent.Assistant, svc *knowledge.Service) *REPL {
	ctx, cancel := context.WithCancel(context.Background())
	r := &REPL{
		assistant: assistant,
		knowledge: svc,
		commands:  make(map[string]Command),
		ctx:       ctx,
		cancel:    cancel,
	}
	r.registerBuiltins()
	return r
}

func (r *REPL) registerBuiltins() {
	r.Register(Command{
		Name: "/help", Description: "Show available commands",
		Handler: func(_ string) error {
			fmt.Println("Available commands:")
			for _, c := range r.commands {
				fmt.Printf("  %-12s %s\n", c.Name, c.Description)
			}
			fmt.Println("Anything else is asked to the assistant.")
			return nil
		},
	})
	r.Register(Command{
		Name: "/courses", Description: "List loaded courses",
		Handler: func(_ string) error {
			stats, err := r.knowledge.GetStats(r.ctx)
			if err != nil {
				return err
			}
			if stats.CourseCount == 0 {
				fmt.Println("No courses loaded. Use 'studyhall ingest <folder>' first.")
				return nil
			}
			fmt.Printf("%d course(s):\n", stats.CourseCount)
			for _, title := range stats.CourseTitles {
				fmt.Printf("  - %s\n", title)
			}
			return nil
		},
	})
	r.Register(Command{
		Name: "/clear", Description: "Forget the current conversation",
		Handler: func(_ string) error {
			r.sessionID = ""
			fmt.Println("Conversation cleared.")
			return nil
		},
	})
	r.Register(Command{
		Name: "/quit", Description: "Exit the chat",
		Handler: func(_ string) error {
			r.cancel()
			return nil
		},
	})
}

// Register adds a slash command.
func (r *REPL) Register(c Command) {
	r.commands[c.Name] = c
}

// Start begins the interactive loop and blocks until /quit or EOF.
func (r *REPL) Start() error {
	fmt.Println("StudyHall — ask about your course materials. /help for commands, /quit to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("studyhall> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			parts := strings.SplitN(line, " ", 2)
			args := ""
			if len(parts) > 1 {
				args = parts[1]
			}
			cmd, ok := r.commands[parts[0]]
			if !ok {
				fmt.Fprintf(os.Stderr, "Unknown command: %s\n", parts[0])
				continue
			}
			if err := cmd.Handler(args); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			select {
			case <-r.ctx.Done():
				fmt.Println("Goodbye.")
				return nil
			default:
			}
			continue
		}

		r.ask(line)
	}
	return scanner.Err()
}

func (r *REPL) ask(question string) {
	answer, err := r.assistant.AnswerQuery(r.ctx, question, r.sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	r.sessionID = answer.SessionID

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range answer.Sources {
			if src.Link != "" {
				fmt.Printf("  - %s (%s)\n", src.Label, src.Link)
			} else {
				fmt.Printf("  - %s\n", src.Label)
			}
		}
	}
}
