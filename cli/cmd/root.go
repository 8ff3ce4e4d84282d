// Package cmd provides the StudyHall CLI command tree.
package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/studyhall-ai/studyhall/cli/repl"
	"github.com/studyhall-ai/studyhall/sdk/agent"
	"github.com/studyhall-ai/studyhall/web"
)

// Execute runs the root CLI command.
func Execute() error {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		return printUsage()
	}
	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest()
	case "ask":
		return runAsk()
	case "chat", "repl":
		return runChat()
	case "courses":
		return runCourses()
	case "remove":
		return runRemove()
	case "version":
		fmt.Println("studyhall v0.1.0")
		return nil
	case "help", "--help", "-h":
		return printUsage()
	default:
		return fmt.Errorf("unknown command: %s\nRun 'studyhall help' for usage.", os.Args[1])
	}
}

func printUsage() error {
	fmt.Println(`StudyHall — course materials assistant

Usage:
  studyhall <command> [options]

Commands:
  serve [addr]              Start the HTTP API (default :8080), ingesting docs_dir first
  ingest <folder> [--clear] Load course documents; --clear rebuilds from scratch
  ask <question>            Ask a one-off question
  chat                      Start an interactive chat session
  courses                   List loaded courses
  remove <course title>     Remove a course and its content
  version                   Print version
  help                      Show this help

Configuration:
  Settings are read from config.yaml (or $STUDYHALL_CONFIG). Values like
  ${ANTHROPIC_API_KEY} are expanded from the environment; a .env file in
  the working directory is loaded automatically.`)
	return nil
}

// loadConfig reads the YAML config, falling back to defaults when no
// config file exists.
func loadConfig() (*agent.Config, error) {
	path := os.Getenv("STUDYHALL_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return agent.DefaultConfig(), nil
	}
	return agent.LoadConfig(path)
}

func buildSystem(ctx context.Context) (*agent.System, *agent.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	sys, err := agent.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return sys, cfg, nil
}

func runServe() error {
	ctx := context.Background()
	sys, cfg, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	if cfg.DocsDir != "" {
		if _, err := os.Stat(cfg.DocsDir); err == nil {
			courses, chunks, err := sys.Knowledge.AddCourseFolder(ctx, cfg.DocsDir, false)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", cfg.DocsDir, err)
			}
			log.Printf("Loaded %d new course(s), %d chunk(s) from %s", courses, chunks, cfg.DocsDir)
		}
	}

	addr := cfg.Addr
	if len(os.Args) > 2 {
		addr = os.Args[2]
	}
	srv := web.NewServer(sys.Assistant, sys.Knowledge, sys.History)
	log.Printf("Starting StudyHall on %s", addr)
	return http.ListenAndServe(addr, srv)
}

func runIngest() error {
	args := os.Args[2:]
	clear := false
	folder := ""
	for _, arg := range args {
		if arg == "--clear" {
			clear = true
		} else if folder == "" {
			folder = arg
		}
	}
	if folder == "" {
		return fmt.Errorf("usage: studyhall ingest <folder> [--clear]")
	}

	ctx := context.Background()
	sys, _, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	courses, chunks, err := sys.Knowledge.AddCourseFolder(ctx, folder, clear)
	if err != nil {
		return err
	}
	fmt.Printf("Added %d course(s), %d chunk(s).\n", courses, chunks)
	return nil
}

func runAsk() error {
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return fmt.Errorf("usage: studyhall ask <question>")
	}

	ctx := context.Background()
	sys, _, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	answer, err := sys.Assistant.AnswerQuery(ctx, question, "")
	if err != nil {
		return err
	}
	fmt.Println(answer.Text)
	for _, src := range answer.Sources {
		if src.Link != "" {
			fmt.Printf("  - %s (%s)\n", src.Label, src.Link)
		} else {
			fmt.Printf("  - %s\n", src.Label)
		}
	}
	return nil
}

func runChat() error {
	sys, _, err := buildSystem(context.Background())
	if err != nil {
		return err
	}
	defer sys.Close()

	return repl.New(sys.Assistant, sys.Knowledge).Start()
}

func runCourses() error {
	ctx := context.Background()
	sys, _, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	stats, err := sys.Knowledge.GetStats(ctx)
	if err != nil {
		return err
	}
	if stats.CourseCount == 0 {
		fmt.Println("No courses loaded.")
		return nil
	}
	for _, title := range stats.CourseTitles {
		fmt.Printf("  - %s\n", title)
	}
	return nil
}

func runRemove() error {
	title := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if title == "" {
		return fmt.Errorf("usage: studyhall remove <course title>")
	}

	ctx := context.Background()
	sys, _, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	if err := sys.Knowledge.RemoveCourse(ctx, title); err != nil {
		return err
	}
	fmt.Printf("Removed %q.\n", title)
	return nil
}
