package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/strapi/strapi-sub004/internal/domain/content"
)

func newEntryCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Edit the draft documents releases publish",
	}

	cmd.AddCommand(newEntryPutCmd(flags))
	cmd.AddCommand(newEntryGetCmd(flags))
	cmd.AddCommand(newEntryListCmd(flags))
	cmd.AddCommand(newEntryDeleteCmd(flags))

	return cmd
}

// parseEntryData accepts a JSON object or YAML mapping.
func parseEntryData(raw string) (map[string]any, error) {
	data := map[string]any{}
	if raw == "" {
		return data, nil
	}
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("parse entry data: %w", err)
	}
	return data, nil
}

func newEntryPutCmd(flags *rootFlags) *cobra.Command {
	var (
		locale string
		data   string
	)

	cmd := &cobra.Command{
		Use:   "put <content-type> <document-id>",
		Short: "Create or replace the draft of a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseEntryData(data)
			if err != nil {
				return newCommandError("save entry", "reading --data", err, `Pass a JSON object such as '{"title": "Hello"}'.`)
			}

			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			saved, err := app.Store.Save(ctx, content.Entry{ContentType: args[0], DocumentID: args[1], Locale: locale, Data: fields})
			if err != nil {
				return err
			}
			if err := app.Releases.OnEntryUpdated(ctx, saved.ContentType, saved.DocumentID, saved.Locale); err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), saved)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", saved.Key(), formatEntryStatus(cmd.OutOrStdout(), saved.Status()))
			return nil
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "Entry locale")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Draft fields as a JSON object")

	return cmd
}

func newEntryGetCmd(flags *rootFlags) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "get <content-type> <document-id>",
		Short: "Show a document with its draft and published data",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			entry, err := app.Store.FindOne(commandContext(cmd), args[0], args[1], locale)
			if err != nil {
				return newCommandError("show entry", fmt.Sprintf("looking up %s/%s", args[0], args[1]), err, "Run 'releases entry list' to see stored documents.")
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), entry)
			}
			return renderEntry(cmd.OutOrStdout(), *entry)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "Entry locale")

	return cmd
}

func newEntryListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [content-type]",
		Short: "List stored documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentType := ""
			if len(args) == 1 {
				contentType = args[0]
			}
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			entries, err := app.Store.List(commandContext(cmd), contentType)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries stored.")
				return nil
			}
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "CONTENT TYPE\tDOCUMENT\tLOCALE\tSTATUS\tUPDATED")
			for _, e := range entries {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
					e.ContentType,
					e.DocumentID,
					valueOrFallback(e.Locale, "-"),
					formatEntryStatus(cmd.OutOrStdout(), e.Status()),
					formatInstant(&e.UpdatedAt, ""),
				)
			}
			return writer.Flush()
		},
	}
}

func newEntryDeleteCmd(flags *rootFlags) *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "delete <content-type> <document-id>",
		Short: "Delete a document and drop the actions pointing at it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			key := content.EntryKey{ContentType: args[0], DocumentID: args[1], Locale: locale}
			if err := app.Store.Delete(ctx, key); err != nil {
				return newCommandError("delete entry", fmt.Sprintf("deleting %s", key), err, "Run 'releases entry list' to see stored documents.")
			}
			if err := app.Releases.OnEntryDeleted(ctx, key.ContentType, key.DocumentID, key.Locale); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", key)
			return nil
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "Entry locale")

	return cmd
}

func renderEntry(w io.Writer, e content.Entry) error {
	fmt.Fprintf(w, "Entry:     %s\n", e.Key())
	fmt.Fprintf(w, "Status:    %s\n", formatEntryStatus(w, e.Status()))
	fmt.Fprintf(w, "Updated:   %s\n", formatInstant(&e.UpdatedAt, ""))
	fmt.Fprintf(w, "Published: %s\n", formatInstant(e.PublishedAt, ""))

	raw, err := yaml.Marshal(e.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nDraft:\n%s", indentBlock(string(raw)))
	if e.PublishedData != nil {
		raw, err := yaml.Marshal(e.PublishedData)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\nPublished data:\n%s", indentBlock(string(raw)))
	}
	return nil
}

func indentBlock(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = "  " + lines[i]
	}
	return strings.Join(lines, "\n") + "\n"
}
