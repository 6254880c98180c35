package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cdpmarklet/internal/bookmarklet"
	"cdpmarklet/internal/dom"
	"cdpmarklet/internal/dom/htmldoc"
	"cdpmarklet/pkg/model"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode URL",
		Short: "Decode a javascript: bookmarklet URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, passes, err := bookmarklet.Decode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "decoded in %d pass(es)\n", passes)
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze [FILE|-]",
		Short: "Print the DOM actions recognised in bookmarklet code",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			code, err := readCode(cmd.InOrStdin(), src)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), bookmarklet.Analyze(code))
		},
	}
}

func newReplayCmd() *cobra.Command {
	var htmlPath, codePath string
	var printHTML bool
	cmd := &cobra.Command{
		Use:   "replay --html FILE [--code FILE|-]",
		Short: "Execute the recognised DOM actions against an offline HTML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(htmlPath)
			if err != nil {
				return err
			}
			defer f.Close()
			doc, err := htmldoc.Parse(f)
			if err != nil {
				return err
			}
			code, err := readCode(cmd.InOrStdin(), codePath)
			if err != nil {
				return err
			}
			return replay(cmd.Context(), cmd.OutOrStdout(), doc, code, printHTML)
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML document to run against")
	cmd.Flags().StringVar(&codePath, "code", "-", "bookmarklet code or javascript: URL file, - for stdin")
	cmd.Flags().BoolVar(&printHTML, "print-html", false, "print the resulting document")
	_ = cmd.MarkFlagRequired("html")
	return cmd
}

type replayLine struct {
	Index  int                `json:"index"`
	Action model.DomAction    `json:"action"`
	Result model.ActionResult `json:"result"`
}

func replay(ctx context.Context, w io.Writer, doc *htmldoc.Document, code string, printHTML bool) error {
	actions := bookmarklet.Analyze(code)
	if len(actions) == 0 {
		return fmt.Errorf("no DOM actions recognised")
	}
	exec := dom.NewExecutor(doc, nil)
	enc := json.NewEncoder(w)
	failed := 0
	for i, a := range actions {
		res := exec.Execute(ctx, a)
		if !res.Success {
			failed++
		}
		if err := enc.Encode(replayLine{Index: i, Action: a, Result: res}); err != nil {
			return err
		}
	}
	if printHTML {
		html, err := doc.HTML()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, html)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d actions failed", failed, len(actions))
	}
	return nil
}

// readCode 读取代码文件或标准输入；javascript: URL 会先解码
func readCode(stdin io.Reader, src string) (string, error) {
	var b []byte
	var err error
	if src == "" || src == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(src)
	}
	if err != nil {
		return "", err
	}
	code := strings.TrimSpace(string(b))
	if bookmarklet.IsBookmarklet(code) {
		return bookmarklet.Parse(code)
	}
	return code, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
