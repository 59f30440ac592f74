package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pogo-pad/internal/files"
	"github.com/MeKo-Tech/pogo-pad/internal/session"
)

const editHelp = `commands:
  open PATH       load PATH, clear the editor and recognize it
  drop PATHS      load dropped paths ({a b} quotes a path with spaces)
  click X Y       append the text of the region at X,Y
  ocr             recognize the current file again
  dump            append every region's text, one per line
  clear           empty the editor
  save [NAME]     save the editor (default: current file name with .txt)
  regions         list the regions of the current file
  files           list loaded files
  text            print the editor contents
  help            show this help
  quit            leave`

// editCmd represents the edit command.
var editCmd = &cobra.Command{
	Use:   "edit [files...]",
	Short: "Interactive editing session on stdin",
	Long: `Start an editing session driven by line commands on stdin. Files given as
arguments are loaded as if they had been dropped.

` + editHelp,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		adapter, err := newAdapter(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = adapter.Close() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		saver, err := newSaver(ctx, cfg)
		if err != nil {
			return err
		}
		factory, err := sessionFactory(cfg, adapter, saver)
		if err != nil {
			return err
		}

		sess := factory()
		out := cmd.OutOrStdout()
		if len(args) > 0 {
			n, outcome := sess.Drop(ctx, args)
			if n == 0 {
				_, _ = fmt.Fprintln(out, "no supported files given")
			} else {
				printOutcome(out, outcome)
			}
		}
		return runEditor(ctx, sess, cmd.InOrStdin(), out)
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}

// runEditor reads commands from in until EOF or quit.
func runEditor(ctx context.Context, sess *session.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "pad> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		if name == "quit" || name == "exit" {
			return nil
		}
		if err := editCommand(ctx, sess, out, name, rest); err != nil {
			_, _ = fmt.Fprintln(out, "error:", err)
		}
	}
}

func editCommand(ctx context.Context, sess *session.Session, out io.Writer, name, rest string) error {
	switch name {
	case "open":
		if rest == "" {
			return errors.New("usage: open PATH")
		}
		ok, outcome := sess.Open(ctx, rest)
		if !ok {
			return fmt.Errorf("unsupported file: %s", rest)
		}
		printOutcome(out, outcome)
	case "drop":
		n, outcome := sess.Drop(ctx, files.SplitDropList(rest))
		_, _ = fmt.Fprintf(out, "accepted %d file(s)\n", n)
		if n > 0 {
			printOutcome(out, outcome)
		}
	case "click":
		x, y, err := parsePoint(strings.Fields(rest))
		if err != nil {
			return err
		}
		if text, ok := sess.Click(x, y); ok {
			_, _ = fmt.Fprintf(out, "+ %q\n", text)
		} else {
			_, _ = fmt.Fprintf(out, "no region at %d,%d\n", x, y)
		}
	case "ocr":
		printOutcome(out, sess.Recognize(ctx))
	case "dump":
		_, _ = fmt.Fprintf(out, "appended %d region(s)\n", sess.DumpAll())
	case "clear":
		sess.Clear()
	case "save":
		loc, err := sess.Save(ctx, rest)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "saved to %s\n", loc)
	case "regions":
		path, regs := sess.Regions()
		if path == "" {
			_, _ = fmt.Fprintln(out, "no regions")
			return nil
		}
		writeRegionsText(out, regs)
	case "files":
		current, _ := sess.Current()
		for _, f := range sess.Files() {
			marker := " "
			if f == current {
				marker = "*"
			}
			_, _ = fmt.Fprintf(out, "%s %s\n", marker, f)
		}
	case "text":
		_, _ = fmt.Fprintln(out, sess.Text())
	case "help":
		_, _ = fmt.Fprintln(out, editHelp)
	default:
		return fmt.Errorf("unknown command %q (try help)", name)
	}
	return nil
}

func parsePoint(fields []string) (int, int, error) {
	if len(fields) != 2 {
		return 0, 0, errors.New("usage: click X Y")
	}
	x, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q", fields[0])
	}
	y, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q", fields[1])
	}
	return x, y, nil
}

func printOutcome(out io.Writer, outcome session.Outcome) {
	switch outcome.Status {
	case session.StatusRecognized:
		_, _ = fmt.Fprintf(out, "recognized %d region(s) in %s\n", outcome.Regions, outcome.Path)
	case session.StatusNoCurrentFile:
		_, _ = fmt.Fprintln(out, "no file loaded")
	case session.StatusDecodeFailed, session.StatusRecognitionFailed:
		_, _ = fmt.Fprintf(out, "%s: %v\n", strings.ReplaceAll(outcome.Status.String(), "_", " "), outcome.Err)
	}
}
