// clvm evaluates cost-metered programs from the command line, serves the
// evaluation service and runs the assembly language server.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/clvm/api"
	"github.com/chazu/clvm/client"
	"github.com/chazu/clvm/config"
	"github.com/chazu/clvm/serde"
	"github.com/chazu/clvm/server"
	"github.com/chazu/clvm/vm"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("clvm.cli")

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: clvm <command> [options] [args]

Commands:
  run    PROGRAM [ENV]    Assemble and evaluate a program
  brun   HEX [HEX]        Evaluate a serialized program
  hash   PROGRAM          Print the tree hash of a program
  serve                   Start the evaluation service (Connect + gRPC)
  lsp                     Start the language server on stdio
  call   PROGRAM [ENV]    Evaluate a program on a running server
  repl                    Start an interactive session

Run 'clvm <command> -h' for command options.

Examples:
  clvm run '(c (q . 1) 1)' '(2 3)'
  clvm brun ff0180 0a
  clvm serve -addr :8546
  clvm call -addr localhost:8546 '(f 1)' '(10 20)'
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(args, os.Stdout))
	case "brun":
		os.Exit(cmdBrun(args, os.Stdout))
	case "hash":
		os.Exit(cmdHash(args, os.Stdout))
	case "serve":
		os.Exit(cmdServe(args))
	case "lsp":
		os.Exit(cmdLsp(args))
	case "call":
		os.Exit(cmdCall(args, os.Stdout))
	case "repl":
		os.Exit(cmdRepl(args))
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

// options are the flags shared by every command.
type options struct {
	dir       string
	verbosity int
}

func newFlagSet(name string) (*flag.FlagSet, *options) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.dir, "C", ".", "directory to search for "+config.FileName)
	fs.IntVar(&o.verbosity, "v", -1, "log verbosity (overrides the config file)")
	return fs, o
}

// setup loads the configuration and configures logging from it.
func (o *options) setup() (*config.Config, error) {
	cfg, err := config.FindAndLoad(o.dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	verbosity := cfg.Log.Verbosity
	if o.verbosity >= 0 {
		verbosity = o.verbosity
	}
	commonlog.Configure(verbosity, cfg.LogPath())
	if cfg.Dir != "" {
		log.Debugf("loaded %s from %s", config.FileName, cfg.Dir)
	}
	return cfg, nil
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}

// -----------------------------------------------------------------------------
// run / brun
// -----------------------------------------------------------------------------

func cmdRun(args []string, out io.Writer) int {
	fs, o := newFlagSet("run")
	file := fs.String("f", "", "read the program from a file")
	maxCost := fs.Uint64("max-cost", 0, "cost ceiling (0 uses the configured ceiling)")
	showCost := fs.Bool("c", false, "print the cost")
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

	rest := fs.Args()
	var programText, envText string
	if *file != "" {
		b, err := os.ReadFile(*file)
		if err != nil {
			return fail(err)
		}
		programText = string(b)
	} else if len(rest) > 0 {
		programText, rest = rest[0], rest[1:]
	} else {
		fmt.Fprintln(os.Stderr, "run: missing program")
		return 2
	}
	if len(rest) > 0 {
		envText = rest[0]
	}

	a := vm.NewIntAllocator()
	program, err := ev.assemble(a, programText)
	if err != nil {
		return fail(fmt.Errorf("program: %w", err))
	}
	env := a.Null()
	if envText != "" {
		if env, err = ev.assemble(a, envText); err != nil {
			return fail(fmt.Errorf("env: %w", err))
		}
	}
	return evalAndPrint(ev, a, program, env, vm.Cost(*maxCost), *showCost, out)
}

func cmdBrun(args []string, out io.Writer) int {
	fs, o := newFlagSet("brun")
	maxCost := fs.Uint64("max-cost", 0, "cost ceiling (0 uses the configured ceiling)")
	showCost := fs.Bool("c", false, "print the cost")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "brun: missing program")
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

	a := vm.NewIntAllocator()
	program, err := ev.decodeHex(a, fs.Arg(0))
	if err != nil {
		return fail(fmt.Errorf("program: %w", err))
	}
	env := a.Null()
	if fs.NArg() > 1 {
		if env, err = ev.decodeHex(a, fs.Arg(1)); err != nil {
			return fail(fmt.Errorf("env: %w", err))
		}
	}
	return evalAndPrint(ev, a, program, env, vm.Cost(*maxCost), *showCost, out)
}

func evalAndPrint(ev *evaluator, a *vm.IntAllocator, program, env vm.NodePtr, maxCost vm.Cost, showCost bool, out io.Writer) int {
	r, err := ev.run(a, program, env, maxCost)
	if errors.Is(err, vm.ErrAllocation) {
		return fail(err)
	}
	if showCost {
		fmt.Fprintf(out, "cost = %d\n", r.Cost)
	}
	if err != nil {
		fmt.Fprintln(out, ev.describe(a, err))
		return 1
	}
	fmt.Fprintln(out, ev.format(a, r.Node))
	return 0
}

// -----------------------------------------------------------------------------
// hash
// -----------------------------------------------------------------------------

func cmdHash(args []string, out io.Writer) int {
	fs, o := newFlagSet("hash")
	isHex := fs.Bool("x", false, "the program is serialized hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "hash: expected one program")
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

	a := vm.NewIntAllocator()
	var n vm.NodePtr
	if *isHex {
		n, err = ev.decodeHex(a, fs.Arg(0))
	} else {
		n, err = ev.assemble(a, fs.Arg(0))
	}
	if err != nil {
		return fail(err)
	}
	h := serde.TreeHash[vm.NodePtr](a, n)
	fmt.Fprintln(out, hex.EncodeToString(h[:]))
	return 0
}

// -----------------------------------------------------------------------------
// serve / lsp
// -----------------------------------------------------------------------------

func cmdServe(args []string) int {
	fs, o := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address (overrides the config file)")
	auditDB := fs.String("audit-db", "", "sqlite audit database (overrides the config file)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := o.setup()
	if err != nil {
		return fail(err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	var opts []server.ServerOption
	if *auditDB != "" {
		opts = append(opts, server.WithAuditDB(*auditDB))
	}
	srv, err := server.New(cfg, opts...)
	if err != nil {
		return fail(err)
	}
	defer srv.Stop()
	if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
		return fail(err)
	}
	return 0
}

func cmdLsp(args []string) int {
	fs, o := newFlagSet("lsp")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg, err := o.setup()
	if err != nil {
		return fail(err)
	}
	if err := server.NewLSP(cfg).Run(); err != nil {
		return fail(err)
	}
	return 0
}

// -----------------------------------------------------------------------------
// call
// -----------------------------------------------------------------------------

func cmdCall(args []string, out io.Writer) int {
	fs, o := newFlagSet("call")
	addr := fs.String("addr", "", "server address (default from the config file)")
	maxCost := fs.Uint64("max-cost", 0, "cost ceiling (0 uses the server's ceiling)")
	showCost := fs.Bool("c", false, "print the cost")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "call: missing program")
		return 2
	}
	cfg, err := o.setup()
	if err != nil {
		return fail(err)
	}
	target := cfg.Server.Addr
	if *addr != "" {
		target = *addr
	}

	c, err := client.Dial(target)
	if err != nil {
		return fail(err)
	}
	defer c.Close()

	req := &api.RunRequest{ProgramText: fs.Arg(0), MaxCost: *maxCost}
	if fs.NArg() > 1 {
		req.EnvText = fs.Arg(1)
	}
	resp, err := c.Run(context.Background(), req)
	if err != nil {
		return fail(err)
	}
	log.Debugf("request %s", resp.RequestID)
	if *showCost {
		fmt.Fprintf(out, "cost = %d\n", resp.Cost)
	}
	if resp.Error != nil {
		fmt.Fprintf(out, "FAIL: %s %s\n", resp.Error.Message, strings.TrimSpace(resp.Error.NodeText))
		return 1
	}
	fmt.Fprintln(out, resp.ResultText)
	return 0
}
