package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/gridcalc/internal/engine"
	"github.com/roach88/gridcalc/internal/spreadsheet"
)

const (
	replHistoryFile = ".gridcalc_history"
	replHelp        = `Commands:
  A1 = <formula>     set a cell
  A1                 show a cell
  :query <cell>      show a cell
  :delete <cell>     remove a cell
  :copy <dest> <src> copy a formula
  :undo              undo the last change
  :dump              list every cell
  :clear             remove every cell
  :help              show this help
  :quit              leave`
)

// NewReplCommand creates the repl command.
func NewReplCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl <sheet>",
		Short: "Edit a sheet interactively",
		Long: `Open a sheet in an interactive session. Changes are stored as they are
made and can be undone for as long as the session lasts. Type :help for
the list of commands.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSheet(cmd.Context(), args[0], func(sh *spreadsheet.Sheet) error {
				return runRepl(cmd, NewSession(cmd.Context(), sh, cmd.OutOrStdout()))
			})
		},
	}
}

func runRepl(cmd *cobra.Command, s *Session) error {
	fmt.Fprintf(cmd.OutOrStdout(), "gridcalc: editing %s. Type :help for commands.\n", s.sheet.Name())

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, replHistoryFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	prompt := s.sheet.Name() + "> "
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		}
		if err != nil {
			return WrapExitError(ExitFailure, "read input", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		if !s.Exec(line) {
			return nil
		}
	}
}

// Session runs REPL lines against one sheet.
type Session struct {
	ctx   context.Context
	sheet *spreadsheet.Sheet
	out   io.Writer
}

// NewSession returns a session that writes results to out.
func NewSession(ctx context.Context, sheet *spreadsheet.Sheet, out io.Writer) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Session{ctx: ctx, sheet: sheet, out: out}
}

// Exec runs one input line. It returns false when the session should end.
// Errors are printed and do not end the session.
func (s *Session) Exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	if !strings.HasPrefix(line, ":") {
		if id, text, ok := strings.Cut(line, "="); ok && !strings.ContainsAny(id, "()+-*/") {
			s.report(s.sheet.Eval(s.ctx, strings.TrimSpace(id), strings.TrimSpace(text)))
			return true
		}
		s.query(line)
		return true
	}

	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	switch {
	case name == ":quit" || name == ":q":
		return false
	case name == ":help":
		fmt.Fprintln(s.out, replHelp)
	case name == ":query" && len(args) == 1:
		s.query(args[0])
	case name == ":delete" && len(args) == 1:
		s.report(s.sheet.Delete(s.ctx, args[0]))
	case name == ":copy" && len(args) == 2:
		s.report(s.sheet.Copy(s.ctx, args[0], args[1]))
	case name == ":undo" && len(args) == 0:
		s.undo()
	case name == ":dump" && len(args) == 0:
		cells := s.sheet.Cells()
		if len(cells) == 0 {
			fmt.Fprintln(s.out, "Sheet is empty.")
		}
		writeCells(s.out, cells)
	case name == ":clear" && len(args) == 0:
		if err := s.sheet.Clear(s.ctx); err != nil {
			s.fail(err)
		}
	default:
		fmt.Fprintf(s.out, "unknown command %q. Type :help for commands.\n", line)
	}
	return true
}

func (s *Session) query(cellID string) {
	r, err := s.sheet.Query(cellID)
	if err != nil {
		s.fail(err)
		return
	}
	if r.Formula == "" {
		fmt.Fprintln(s.out, "(empty)")
		return
	}
	fmt.Fprintf(s.out, "%s  [%s]\n", spreadsheet.Value(r.Value), r.Formula)
}

func (s *Session) undo() {
	ids, err := s.sheet.Undo(s.ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if len(ids) == 0 {
		fmt.Fprintln(s.out, "Nothing to undo.")
		return
	}
	fmt.Fprintf(s.out, "Restored %s\n", strings.Join(ids, ", "))
}

func (s *Session) report(updates engine.Updates, err error) {
	if err != nil {
		s.fail(err)
		return
	}
	writeUpdates(s.out, updates)
}

func (s *Session) fail(err error) {
	if code := engine.CodeOf(err); code != "" {
		fmt.Fprintf(s.out, "Error [%s]: %s\n", code, errorText(err))
		return
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
}
