package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load(".env")
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "docreader:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	outFlag := &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write the result to `FILE` instead of stdout"}
	return &cli.App{
		Name:  "docreader",
		Usage: "extract, rank and summarise PDF, DOCX and EPUB documents",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config `FILE`", EnvVars: []string{"DOCREADER_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Usage: "override the configured log level"},
			&cli.StringFlag{Name: "log-format", Usage: "json or console"},
		},
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "print the page text of a document as JSON",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Usage: "pdf, docx or epub (default: from the file extension)"},
					outFlag,
				},
				Action: ExtractAction,
			},
			{
				Name:      "rank",
				Usage:     "rank the pages of a document against a question",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "interest", Aliases: []string{"q"}, Usage: "what you are looking for", Required: true},
					&cli.StringFlag{Name: "mode", Usage: "rubric or embedding (default: configured mode)"},
					&cli.StringFlag{Name: "format", Usage: "pdf, docx or epub (default: from the file extension)"},
					outFlag,
				},
				Action: RankAction,
			},
			{
				Name:      "summarize",
				Aliases:   []string{"summarise"},
				Usage:     "summarise a document or a page range",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "from", Usage: "first page (1-based)"},
					&cli.IntFlag{Name: "to", Usage: "last page, inclusive"},
					&cli.StringFlag{Name: "format", Usage: "pdf, docx or epub (default: from the file extension)"},
					outFlag,
				},
				Action: SummarizeAction,
			},
			{
				Name:  "calls",
				Usage: "list recent backend calls from the audit table",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of rows"},
				},
				Action: CallsAction,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address (default: configured api_addr)"},
				},
				Action: ServeAction,
			},
		},
	}
}
