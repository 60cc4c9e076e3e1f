package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/starford/hugopub/internal"
	"github.com/starford/hugopub/internal/articles"
	"github.com/starford/hugopub/internal/auth"
	"github.com/starford/hugopub/internal/client"
	"github.com/starford/hugopub/internal/document"
	"github.com/starford/hugopub/internal/editor"
	"github.com/starford/hugopub/internal/importer"
	"github.com/starford/hugopub/internal/models"
	"github.com/starford/hugopub/internal/publish"
)

// newSession builds the editing session of one client command.
func newSession(cmd *cli.Command) (*editor.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))

	var opts []client.Option
	if cfg.Client.Token != "" {
		opts = append(opts, client.WithToken(cfg.Client.Token))
	}
	api := client.New(cfg.Client.APIBaseURL, opts...)

	s := editor.NewSession(api, auth.NewTerminalPrompter(os.Stdin, os.Stderr), sessionConfig(cfg.Client), logger)
	return s, nil
}

func sessionConfig(c internal.ClientConfig) editor.Config {
	return editor.Config{
		ArticleDirs:  c.Directories,
		PageSize:     c.PageSize,
		PollInterval: c.PollInterval,
		Retry:        c.PollRetry.Publish(),
	}
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.Args().First()
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

func readDocument(p string) (*document.Document, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return document.Parse(string(data)), nil
}

// writeOutput writes content to p, or to stdout when p is empty.
func writeOutput(p, content string) error {
	if p == "" {
		_, err := io.WriteString(os.Stdout, content)
		return err
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Render an article body to HTML",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write HTML to this file"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			p, err := requireArg(cmd, "FILE")
			if err != nil {
				return err
			}
			doc, err := readDocument(p)
			if err != nil {
				return err
			}
			return writeOutput(cmd.String("output"), doc.Preview())
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish an article and wait for the job to finish",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Target content directory"},
			&cli.BoolFlag{Name: "draft", Usage: "Publish as draft"},
			&cli.BoolFlag{Name: "format", Usage: "Run the remote formatter first"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := requireArg(cmd, "FILE")
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			doc, err := readDocument(p)
			if err != nil {
				return err
			}
			s.Doc = doc

			if cmd.Bool("format") {
				if err := s.Format(ctx); err != nil {
					return err
				}
			}

			res, err := s.Publish(ctx, publish.Options{
				TargetDir: cmd.String("dir"),
				Draft:     cmd.Bool("draft"),
			}, func(job models.PublishJob) {
				fmt.Fprintf(os.Stderr, "[%3d%%] %s %s\n", job.Progress, job.Status, job.Message)
			})
			if err != nil {
				return err
			}
			fmt.Printf("published %s\n%s\n", res.FilePath, res.URL)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Browse published articles",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "Only this directory"},
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by name"},
			&cli.StringFlag{Name: "sort", Value: string(articles.ByDate), Usage: "date or name"},
			&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			order, err := articles.ParseSortOrder(cmd.String("sort"))
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if err := s.RefreshArticles(ctx); err != nil {
				return err
			}

			s.Articles.SetDirectory(cmd.String("dir"))
			s.Articles.SetQuery(cmd.String("query"))
			s.Articles.SetSort(order)
			s.Articles.SetPage(int(cmd.Int("page")))
			view := s.Articles.View()

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDIRECTORY\tUPDATED")
			for _, a := range view.Items {
				updated := "-"
				if a.UpdatedAt != nil {
					updated = a.UpdatedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, a.Directory, updated)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Printf("page %d/%d, %d articles\n", view.Page, view.Pages, view.Total)
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a stored article",
		ArgsUsage: "PATH",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := requireArg(cmd, "PATH")
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if err := s.Open(ctx, p); err != nil {
				return err
			}
			stats := s.Doc.Stats()
			fmt.Fprintf(os.Stderr, "%d characters, about %d min read\n", stats.Characters, stats.ReadingMinutes)
			return writeOutput("", s.Doc.String())
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a stored article",
		ArgsUsage: "PATH",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := requireArg(cmd, "PATH")
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if err := s.DeleteArticle(ctx, p); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", p)
			return nil
		},
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload an image and print its Markdown reference",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Stored file name"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := requireArg(cmd, "FILE")
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}

			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			res, err := s.UploadImage(ctx, filepath.Base(p), f, info.Size(), cmd.String("name"))
			if err != nil {
				return err
			}
			fmt.Println(res.URL)
			fmt.Println(strings.TrimSpace(s.Doc.Body))
			return nil
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Convert a web page into a Markdown draft",
		ArgsUsage: "URL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the draft to this file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			u, err := requireArg(cmd, "URL")
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if err := s.Import(ctx, importer.New(), u); err != nil {
				return err
			}
			return writeOutput(cmd.String("output"), s.Doc.String())
		},
	}
}

func formatCommand() *cli.Command {
	return &cli.Command{
		Name:      "format",
		Usage:     "Run an article through the remote formatter",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the result to this file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := requireArg(cmd, "FILE")
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			doc, err := readDocument(p)
			if err != nil {
				return err
			}
			s.Doc = doc
			if err := s.Format(ctx); err != nil {
				return fmt.Errorf("format %s: %w", p, err)
			}
			return writeOutput(cmd.String("output"), s.Doc.String())
		},
	}
}
