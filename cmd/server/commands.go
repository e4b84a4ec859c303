package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	appsvc "secondbrain/internal/app"
	"secondbrain/internal/bootstrap"
)

// withApp runs fn against an app without the message queue or cache.
// Conversation messages are written straight to MySQL in this mode.
func withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	app, err := bootstrap.New(ctx, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newIngestCmd() *cobra.Command {
	var (
		title string
		tags  []string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add content to the knowledge base",
	}
	cmd.PersistentFlags().StringVar(&title, "title", "", "document title")
	cmd.PersistentFlags().StringSliceVar(&tags, "tags", nil, "comma separated tags")

	textCmd := &cobra.Command{
		Use:   "text [TEXT]",
		Short: "Ingest a text note; reads stdin when TEXT is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				res, err := app.Ingest.IngestText(cmd.Context(), appsvc.TextInput{Text: text, Title: title, Tags: tags})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	urlCmd := &cobra.Command{
		Use:   "url URL",
		Short: "Fetch a web page and ingest its main text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				res, err := app.Ingest.IngestURL(cmd.Context(), appsvc.URLInput{URL: args[0], Title: title, Tags: tags})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	var contentType string
	fileCmd := &cobra.Command{
		Use:   "file PATH...",
		Short: "Ingest local files (pdf, markdown, text, audio, images)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				var failed int
				for _, path := range args {
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read %s failed: %w", path, err)
					}
					res, err := app.Ingest.IngestFile(cmd.Context(), appsvc.FileInput{
						Filename:    filepath.Base(path),
						Data:        data,
						Title:       title,
						ContentType: contentType,
						Tags:        tags,
					})
					if err != nil {
						failed++
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						continue
					}
					if err := printJSON(cmd.OutOrStdout(), res); err != nil {
						return err
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d files failed", failed, len(args))
				}
				return nil
			})
		},
	}
	fileCmd.Flags().StringVar(&contentType, "content-type", "", "override the inferred content type (audio, document, web, text, image)")

	cmd.AddCommand(textCmd, urlCmd, fileCmd)
	return cmd
}

func newQueryCmd() *cobra.Command {
	var in appsvc.QueryInput
	var stream bool
	cmd := &cobra.Command{
		Use:   "query QUESTION",
		Short: "Ask a question against the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Query = strings.Join(args, " ")
			return withApp(cmd.Context(), func(app *bootstrap.App) error {
				if !stream {
					res, err := app.Query.Ask(cmd.Context(), in)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), res)
				}

				qs, err := app.Query.Stream(cmd.Context(), in)
				if err != nil {
					return err
				}
				defer qs.Close()
				out := cmd.OutOrStdout()
				for {
					frag, err := qs.Next()
					if err == io.EOF {
						break
					}
					if err != nil {
						return err
					}
					fmt.Fprint(out, frag)
				}
				fmt.Fprintln(out)
				for i, src := range qs.Sources {
					fmt.Fprintf(out, "[%d] %s (%.2f)\n", i+1, src.Title, src.Relevance)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.TimeFilter, "time", "", "time filter, e.g. \"last week\" or \"last 3 days\"")
	cmd.Flags().StringSliceVar(&in.ContentTypes, "type", nil, "restrict to content types")
	cmd.Flags().IntVarP(&in.Limit, "limit", "n", 0, "number of chunks to retrieve")
	cmd.Flags().StringVar(&in.ConversationID, "conversation", "", "conversation to record the exchange in")
	cmd.Flags().BoolVar(&stream, "stream", false, "print the answer as it is generated")
	return cmd
}

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Inspect stored documents",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List documents newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), func(app *bootstrap.App) error {
					list, err := app.DocumentSvc.List(cmd.Context())
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), list)
				})
			},
		},
		&cobra.Command{
			Use:   "count",
			Short: "Print the number of stored documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd.Context(), func(app *bootstrap.App) error {
					n, err := app.DocumentSvc.Count(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a document and its chunks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), func(app *bootstrap.App) error {
					return app.DocumentSvc.Delete(cmd.Context(), args[0])
				})
			},
		},
	)
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [PASSWORD]",
		Short: "Print a bcrypt hash for AUTH_PASSWORD_HASH; reads stdin when PASSWORD is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			hash, err := appsvc.HashPassword(strings.TrimRight(password, "\r\n"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func argOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return "", fmt.Errorf("read stdin failed: %w", err)
	}
	return string(data), nil
}
