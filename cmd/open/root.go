package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/fileopen/internal/charset"
	"github.com/JonMunkholm/fileopen/internal/config"
	"github.com/JonMunkholm/fileopen/internal/core"
	"github.com/JonMunkholm/fileopen/internal/logging"
	"github.com/JonMunkholm/fileopen/internal/transcode"
)

// errReported means the failure was already printed.
var errReported = errors.New("one or more files could not be opened")

type options struct {
	raw           bool
	encoding      string
	strict        bool
	listEncodings bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "open [flags] <path>...",
		Short: "Load files as text",
		Long: `Open loads each file and prints its contents.

With --encoding the file is decoded from that encoding into UTF-8. Without
it, UTF-8 and UTF-16 with a byte-order mark are detected; anything else is
reported as binary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.listEncodings {
				return listEncodings(stdout)
			}
			if len(args) == 0 {
				return errors.New("at least one path is required")
			}
			return run(cmd, opts, args, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.raw, "raw", "r", false, "do not hint a format from the file extension; write binary content as is")
	flags.StringVarP(&opts.encoding, "encoding", "e", "", "decode the file from this encoding label (e.g. latin1, gbk, utf-16)")
	flags.BoolVar(&opts.strict, "strict", false, "fail on an unrecognized encoding label instead of falling back to UTF-8")
	flags.BoolVar(&opts.listEncodings, "list-encodings", false, "list the supported encodings and exit")

	return cmd
}

type outcome struct {
	res *core.Result
	err error
}

func run(cmd *cobra.Command, opts options, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(logging.New(stderr, cfg.Logging.Level, "text"))

	loader := core.Loader{
		Transcoder: transcode.Transcoder{
			InputSize:        cfg.Transcode.InputSize,
			IntermediateSize: cfg.Transcode.IntermediateSize,
			OutputSize:       cfg.Transcode.OutputSize,
		},
		Strict:      opts.strict || cfg.Load.StrictEncoding,
		MaxFileSize: cfg.Load.MaxFileSize,
	}

	base, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	line, spans := commandLine(cmd.Name(), args)
	results := make([]outcome, len(args))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(cfg.Load.MaxConcurrent)
	for i, path := range args {
		g.Go(func() error {
			res, err := loader.Load(ctx, core.Request{
				BaseDir:  base,
				Path:     path,
				Span:     spans[i],
				Encoding: opts.encoding,
				Raw:      opts.raw,
			})
			results[i] = outcome{res, err}
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for _, o := range results {
		if o.err != nil {
			failed = true
			printLabeledError(stderr, line, o.err)
			continue
		}
		if err := printResult(stdout, stderr, o.res, opts.raw); err != nil {
			return err
		}
	}
	if failed {
		return errReported
	}
	return nil
}

// commandLine rebuilds the command line and returns the span of each
// argument within it.
func commandLine(name string, args []string) (string, []core.Span) {
	var b strings.Builder
	b.WriteString(name)
	spans := make([]core.Span, len(args))
	for i, a := range args {
		b.WriteByte(' ')
		spans[i] = core.Span{Start: b.Len(), End: b.Len() + len(a)}
		b.WriteString(a)
	}
	return b.String(), spans
}

func printResult(stdout, stderr io.Writer, res *core.Result, raw bool) error {
	for _, w := range res.Warnings {
		fmt.Fprintf(stderr, "%s %s\n", color.YellowString("warning:"), w)
	}

	var err error
	switch {
	case res.Content.IsText():
		_, err = io.WriteString(stdout, res.Content.Text())
	case raw:
		_, err = stdout.Write(res.Content.Bytes())
	default:
		_, err = fmt.Fprintf(stdout, "<binary: %d bytes>\n", res.Content.Len())
	}
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// printLabeledError prints err with a caret line under the argument that
// caused it.
func printLabeledError(w io.Writer, line string, err error) {
	red := color.New(color.FgRed, color.Bold)

	var le *core.LoadError
	if !errors.As(err, &le) {
		fmt.Fprintf(w, "%s %v\n", red.Sprint("error:"), err)
		return
	}

	fmt.Fprintf(w, "%s %s\n", red.Sprint("error:"), le.Error())
	span := le.Span
	if span.End <= span.Start || span.End > len(line) {
		return
	}
	fmt.Fprintf(w, "  %s\n", line)
	fmt.Fprintf(w, "  %s%s %s\n",
		strings.Repeat(" ", span.Start),
		red.Sprint(strings.Repeat("^", span.End-span.Start)),
		red.Sprint(le.Label()),
	)
}

func listEncodings(w io.Writer) error {
	for _, enc := range charset.All() {
		line := enc.Name()
		if aliases := enc.Aliases(); len(aliases) > 0 {
			line += "  " + color.HiBlackString(strings.Join(aliases, ", "))
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
