package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petasbytes/go-agent/internal/config"
	"github.com/petasbytes/go-agent/internal/llm"
	"github.com/petasbytes/go-agent/internal/provider"
	"github.com/petasbytes/go-agent/internal/runner"
	"github.com/petasbytes/go-agent/internal/session"
	"github.com/petasbytes/go-agent/internal/transcript"
	"github.com/petasbytes/go-agent/tools"
)

const helpText = `Commands:
  help          show this help
  list          list saved sessions
  new           start a new session
  resume <id>   switch to a saved session
  exit          quit
Anything else is sent to the model.`

type chat struct {
	cfg     *config.Config
	client  llm.Client
	manager *session.Manager
	out     *output
	log     *zap.Logger

	runner *runner.Runner
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := configFrom(cmd)
	ctx := cmd.Context()

	if err := configureRoots(cfg); err != nil {
		return fmt.Errorf("tool sandbox: %w", err)
	}
	if cfg.Stream && cfg.Provider == provider.Anthropic {
		logger.Warn("streaming is not supported for anthropic; using tool mode")
		cfg.Stream = false
	}

	client, err := provider.New(cfg.Provider, llm.Options{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer store.Close()

	c := &chat{
		cfg:    cfg,
		client: client,
		manager: session.NewManager(store, session.Options{
			SystemPrompt: cfg.SystemPrompt,
			Tools:        tools.Options{CommandTimeout: cfg.CommandTimeout()},
			Logger:       logger,
		}),
		out: newOutput(cmd.OutOrStdout()),
		log: logger,
	}
	defer c.shutdown()

	s, err := c.manager.New(ctx)
	if err != nil {
		return err
	}
	c.bind(s)
	c.out.info(fmt.Sprintf("Chat with %s (%s). Type help for commands, Ctrl-C to quit.", cfg.Model, cfg.Provider))
	return c.loop(ctx, os.Stdin)
}

// bind points the runner at s.
func (c *chat) bind(s *session.Session) {
	c.runner = runner.New(c.client, s.Tools, s.Transcript, runner.Options{
		Model:         c.cfg.Model,
		MaxIterations: c.cfg.MaxIterations,
		TokenBudget:   c.cfg.TokenBudget,
		Logger:        c.log.With(zap.String("session", s.ID)),
		Hooks: runner.Hooks{
			OnToolStart: func(call transcript.ToolCall) {
				if step, ok := planStep(call); ok {
					c.out.stepStarted(step, call.Function.Name)
				}
				c.out.tool(call.Function.Name, call.Function.Arguments)
			},
			OnToolResult: func(call transcript.ToolCall, result string, failed bool) {
				if failed {
					c.out.toolFailed(call.Function.Name, result)
				} else {
					c.out.toolResult(call.Function.Name, result)
				}
				if step, ok := planStep(call); ok {
					c.out.stepFinished(step, call.Function.Name)
				}
			},
		},
	})
	if s.Persisted() {
		c.out.info("session " + s.ID)
	} else {
		c.out.warn("session is not being saved")
	}
}

// shutdown drains pending writes without the cancelled root context.
func (c *chat) shutdown() {
	if err := c.manager.Close(context.Background()); err != nil {
		c.log.Warn("failed to flush session", zap.Error(err))
	}
}

// loop reads one line at a time and handles it to completion before the next.
func (c *chat) loop(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		c.out.prompt()
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			c.out.info("\nExiting...")
			return nil
		case line, ok = <-lines:
			if !ok {
				return scanner.Err()
			}
		}

		cmd, arg := parseCommand(line)
		switch cmd {
		case cmdEmpty:
		case cmdHelp:
			c.out.info(helpText)
		case cmdExit:
			return nil
		case cmdList:
			c.list(ctx)
		case cmdNew:
			if s, err := c.manager.New(ctx); err == nil {
				c.bind(s)
			}
		case cmdResume:
			c.resume(ctx, arg)
		default:
			c.turn(ctx, line)
		}
	}
}

func (c *chat) list(ctx context.Context) {
	infos, err := c.manager.List(ctx)
	if err != nil {
		c.out.error(err)
		return
	}
	if len(infos) == 0 {
		c.out.info("no saved sessions")
		return
	}
	cur := c.manager.Current()
	for _, info := range infos {
		marker := " "
		if cur != nil && cur.ID == info.ID {
			marker = "*"
		}
		c.out.info(fmt.Sprintf("%s %s  %s  %d messages", marker, info.ID,
			info.UpdatedAt.Local().Format("2006-01-02 15:04"), info.MessageCount))
	}
}

func (c *chat) resume(ctx context.Context, id string) {
	if id == "" {
		c.out.warn("usage: resume <id>")
		return
	}
	s, err := c.manager.Resume(ctx, id)
	if err != nil {
		c.out.error(err)
		return
	}
	c.bind(s)
	c.out.history(s.Transcript.Messages())
}

// planStep reports the step index an updatePlanStep call refers to.
func planStep(call transcript.ToolCall) (int, bool) {
	if call.Function.Name != "updatePlanStep" {
		return 0, false
	}
	var args struct {
		Index float64 `json:"index"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return 0, false
	}
	step := int(math.Floor(args.Index))
	return step, step > 0
}

func (c *chat) turn(ctx context.Context, input string) {
	if c.cfg.Stream {
		c.out.assistantLabel()
		_, err := c.runner.StreamTurn(ctx, input, c.out.delta)
		c.out.endStream()
		if err != nil {
			c.reportTurnError(err)
		}
		return
	}

	resp, err := c.runner.RunTurn(ctx, input)
	if err != nil {
		c.reportTurnError(err)
		return
	}
	c.out.answer(resp.Message.Content)
}

func (c *chat) reportTurnError(err error) {
	switch {
	case errors.Is(err, context.Canceled):
		c.out.warn("turn cancelled")
	case errors.Is(err, runner.ErrTurnLimit):
		c.out.warn(err.Error() + "; send another message to continue")
	default:
		c.out.error(err)
	}
}

type command int

const (
	cmdEmpty command = iota
	cmdTurn
	cmdHelp
	cmdList
	cmdNew
	cmdResume
	cmdExit
)

// parseCommand recognizes REPL commands; everything else is a turn.
func parseCommand(line string) (command, string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return cmdEmpty, ""
	}
	switch strings.ToLower(fields[0]) {
	case "help":
		if len(fields) == 1 {
			return cmdHelp, ""
		}
	case "list":
		if len(fields) == 1 {
			return cmdList, ""
		}
	case "new":
		if len(fields) == 1 {
			return cmdNew, ""
		}
	case "exit", "quit":
		if len(fields) == 1 {
			return cmdExit, ""
		}
	case "resume":
		if len(fields) <= 2 {
			arg := ""
			if len(fields) == 2 {
				arg = fields[1]
			}
			return cmdResume, arg
		}
	}
	return cmdTurn, ""
}
