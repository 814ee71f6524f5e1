package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/strapi/strapi-sub004/internal/application/releases"
	"github.com/strapi/strapi-sub004/internal/domain/release"
	releaseerrors "github.com/strapi/strapi-sub004/pkg/errors"
)

func newActionCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Manage the actions bundled in a release",
	}

	cmd.AddCommand(newActionAddCmd(flags))
	cmd.AddCommand(newActionAddManyCmd(flags))
	cmd.AddCommand(newActionUpdateCmd(flags))
	cmd.AddCommand(newActionRemoveCmd(flags))
	cmd.AddCommand(newActionListCmd(flags))

	return cmd
}

func newActionAddCmd(flags *rootFlags) *cobra.Command {
	var (
		actionType string
		locale     string
	)

	cmd := &cobra.Command{
		Use:   "add <release-id> <content-type> [document-id]",
		Short: "Bundle one entry into a release",
		Long:  "Bundle one entry into a release. The document id may be omitted for single types.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := releases.CreateActionInput{
				Type:        release.ActionType(actionType),
				ContentType: args[1],
				Locale:      locale,
			}
			if len(args) == 3 {
				in.DocumentID = args[2]
			}

			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			a, err := app.Releases.CreateAction(commandContext(cmd), args[0], in)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added action %s: %s %s\n", a.ID, a.Type, a.EntryKey())
			return nil
		},
	}
	cmd.Flags().StringVarP(&actionType, "type", "t", string(release.ActionPublish), "Action type: publish or unpublish")
	cmd.Flags().StringVar(&locale, "locale", "", "Entry locale")

	return cmd
}

// actionFileItem is one element of an add-many file.
type actionFileItem struct {
	Type        string `yaml:"type"`
	ContentType string `yaml:"contentType"`
	DocumentID  string `yaml:"documentId"`
	Locale      string `yaml:"locale"`
}

func loadActionFile(path string) ([]releases.CreateActionInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, releaseerrors.NewParseError("actions", path, 0, err)
	}
	var items []actionFileItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, releaseerrors.NewParseError("actions", path, 0, err)
	}
	out := make([]releases.CreateActionInput, 0, len(items))
	for _, item := range items {
		actionType := item.Type
		if actionType == "" {
			actionType = string(release.ActionPublish)
		}
		out = append(out, releases.CreateActionInput{
			Type:        release.ActionType(actionType),
			ContentType: item.ContentType,
			DocumentID:  item.DocumentID,
			Locale:      item.Locale,
		})
	}
	return out, nil
}

func newActionAddManyCmd(flags *rootFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add-many <release-id>",
		Short: "Bundle a list of entries read from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := loadActionFile(file)
			if err != nil {
				return newCommandError("add actions", "reading action file", err, "The file must be a YAML list of {type, contentType, documentId, locale}.")
			}

			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			result, err := app.Releases.CreateManyActions(commandContext(cmd), args[0], inputs)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d entries (%d already in release)\n",
				len(result.Created), result.TotalEntries, result.EntriesAlreadyInRelease)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file listing the entries")
	cmd.MarkFlagRequired("file") //nolint:errcheck

	return cmd
}

func newActionUpdateCmd(flags *rootFlags) *cobra.Command {
	var actionType string

	cmd := &cobra.Command{
		Use:   "update <release-id> <action-id>",
		Short: "Switch an action between publish and unpublish",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			a, err := app.Releases.UpdateAction(commandContext(cmd), args[0], args[1], releases.UpdateActionInput{Type: release.ActionType(actionType)})
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Action %s now %ss %s\n", a.ID, a.Type, a.EntryKey())
			return nil
		},
	}
	cmd.Flags().StringVarP(&actionType, "type", "t", "", "Action type: publish or unpublish")
	cmd.MarkFlagRequired("type") //nolint:errcheck

	return cmd
}

func newActionRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <release-id> <action-id>",
		Short: "Remove an action from a release",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			a, err := app.Releases.DeleteAction(commandContext(cmd), args[0], args[1])
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed action %s\n", a.ID)
			return nil
		},
	}
}

func newActionListCmd(flags *rootFlags) *cobra.Command {
	var groupBy string

	cmd := &cobra.Command{
		Use:   "list <release-id>",
		Short: "List the actions of a release, grouped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := release.ParseGroupBy(groupBy)
			if err != nil {
				return err
			}
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			groups, err := app.Releases.ListActions(commandContext(cmd), args[0], by)
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), groups)
			}
			return renderActionGroups(cmd.OutOrStdout(), groups)
		},
	}
	cmd.Flags().StringVar(&groupBy, "group-by", string(release.GroupByContentType), "Group by contentType, locale or action")

	return cmd
}

func renderActionGroups(w io.Writer, groups []releases.ActionGroupView) error {
	if len(groups) == 0 {
		fmt.Fprintln(w, "Release has no actions.")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(writer)
		}
		fmt.Fprintf(writer, "%s\n", valueOrFallback(g.Key, "(none)"))
		fmt.Fprintln(writer, "  ID\tTYPE\tCONTENT TYPE\tDOCUMENT\tLOCALE\tVALID\tENTRY")
		for _, a := range g.Actions {
			fmt.Fprintf(writer, "  %s\t%s\t%s\t%s\t%s\t%t\t%s\n",
				a.ID,
				a.Type,
				a.ContentType,
				a.EntryDocumentID,
				valueOrFallback(a.Locale, "-"),
				a.IsEntryValid,
				formatEntryStatus(w, a.EntryStatus),
			)
		}
	}
	return writer.Flush()
}
