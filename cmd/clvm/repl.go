package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/chazu/clvm/asm"
	"github.com/chazu/clvm/serde"
	"github.com/chazu/clvm/vm"
)

const (
	historyFile = ".clvm_history"
	promptMain  = "clvm> "
	promptCont  = "  ... "
)

const replHelp = `REPL commands:
  :env EXPR   Set the environment programs run against (no EXPR clears it)
  :cost       Toggle printing the cost of each evaluation
  :hash EXPR  Print the tree hash of EXPR
  :help       Show this help
  :quit       Exit the REPL
`

// session is the state of one REPL.
type session struct {
	ev       *evaluator
	envText  string
	showCost bool
}

// eval assembles and evaluates src against the session environment.
func (s *session) eval(src string, out io.Writer) {
	a := vm.NewIntAllocator()
	program, err := s.ev.assemble(a, src)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	env := a.Null()
	if s.envText != "" {
		if env, err = s.ev.assemble(a, s.envText); err != nil {
			fmt.Fprintf(out, "error: env: %v\n", err)
			return
		}
	}
	r, err := s.ev.run(a, program, env, 0)
	if s.showCost {
		fmt.Fprintf(out, "cost = %d\n", r.Cost)
	}
	if err != nil {
		fmt.Fprintln(out, s.ev.describe(a, err))
		return
	}
	fmt.Fprintln(out, s.ev.format(a, r.Node))
}

// command runs a REPL command line and reports whether the REPL should
// exit.
func (s *session) command(line string, out io.Writer) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case ":quit", ":q":
		return true
	case ":help", ":h", ":?":
		fmt.Fprint(out, replHelp)
	case ":cost":
		s.showCost = !s.showCost
		fmt.Fprintf(out, "cost display %s\n", onOff(s.showCost))
	case ":env":
		if arg != "" {
			if _, err := s.ev.assemble(vm.NewIntAllocator(), arg); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				return false
			}
		}
		s.envText = arg
	case ":hash":
		a := vm.NewIntAllocator()
		n, err := s.ev.assemble(a, arg)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return false
		}
		h := serde.TreeHash[vm.NodePtr](a, n)
		fmt.Fprintf(out, "%x\n", h)
	default:
		fmt.Fprintf(out, "unknown command %s (type :help for commands)\n", name)
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func cmdRepl(args []string) int {
	fs, o := newFlagSet("repl")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := o.setup()
	if err != nil {
		return fail(err)
	}
	ev, err := newEvaluator(cfg)
	if err != nil {
		return fail(err)
	}
	s := &session{ev: ev}

	fmt.Println("clvm REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ln.SetCompleter(func(line string) []string {
		var out []string
		for name := range ev.keywords {
			if i := strings.LastIndexAny(line, "( "); i >= 0 && strings.HasPrefix(name, line[i+1:]) {
				out = append(out, line[:i+1]+name)
			}
		}
		return out
	})

	for {
		src, ok := readExpr(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(trimmed, "\n", " "))
		if strings.HasPrefix(trimmed, ":") {
			if s.command(trimmed, os.Stdout) {
				return 0
			}
			continue
		}
		s.eval(src, os.Stdout)
	}
}

// readExpr reads lines until they form a complete expression or fail to
// parse for a reason more input cannot fix.
func readExpr(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !needsMore(src) {
			return src, true
		}
	}
}

// needsMore reports whether src ends inside an open list.
func needsMore(src string) bool {
	_, err := asm.Parse[vm.NodePtr](vm.NewIntAllocator(), src, nil)
	return asm.IsIncomplete(err)
}
