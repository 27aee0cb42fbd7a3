package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"miniplm/engine"
	"miniplm/models"
	"miniplm/workbench"
)

func newLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List products and the files of the active product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printTree(cmd.OutOrStdout(), a.bench)
		},
	}
}

func printTree(out io.Writer, wb *workbench.Workbench) error {
	products := wb.Products()
	active, activeIdx := wb.Active()
	for i, p := range products {
		mark := " "
		if i == activeIdx {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %d %s (%d files)\n", mark, i, p.Name, p.FileCount())
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	selected := active.SelectedLabel()
	for _, m := range active.StageIcons {
		mark := ""
		if m.Label == selected {
			mark = " *"
		}
		fmt.Fprintf(tw, "%s [%s]%s\n", m.Label, m.Type, mark)
		for _, f := range active.FilesByStage[m.Label] {
			if f.IsChildFile {
				continue
			}
			printFile(tw, "  ", f)
			children, err := wb.VisibleChildren(f.ID)
			if err != nil {
				return err
			}
			for _, c := range children {
				printFile(tw, "    - ", c)
			}
		}
	}
	return tw.Flush()
}

func printFile(w io.Writer, indent string, f models.FileNode) {
	qty := ""
	if q := f.Quantity(); q != nil {
		qty = strconv.Itoa(*q)
	}
	fmt.Fprintf(w, "%s%s\t%s\trev %d/%d\t%s\t%s\t%s\n",
		indent, f.Name(), f.ID, f.CurrentRevisionNumber, f.RevisionCount(), f.Status(), f.Price(), qty)
}

func newProductCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage products",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a product and make it active",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.bench.AddProduct(cmd.Context(), strings.Join(args, " "))
			return report(cmd, n, err)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "select <name|index>",
		Short: "Make a product active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := a.productIndex(args[0])
			if err != nil {
				return err
			}
			n, err := a.bench.SelectProduct(cmd.Context(), idx)
			return report(cmd, n, err)
		},
	})
	return cmd
}

// newStageCmd builds "stage" or "iteration"; both share add/rm/select.
func newStageCmd(a *app, use string) *cobra.Command {
	markerType := models.MarkerStage
	if use == "iteration" {
		markerType = models.MarkerIteration
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Manage %s markers", strings.ToLower(string(markerType))),
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add",
		Short: fmt.Sprintf("Append a %s", strings.ToLower(string(markerType))),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, n, err := a.bench.AddMarker(cmd.Context(), markerType)
			return report(cmd, n, err)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <label>",
		Short: "Delete an empty stage or iteration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.bench.RemoveMarker(cmd.Context(), args[0])
			return report(cmd, n, err)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "select [label]",
		Short: "Select the stage uploads go to (no label clears it)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ""
			if len(args) == 1 {
				label = args[0]
			}
			n, err := a.bench.SelectStage(cmd.Context(), label)
			return report(cmd, n, err)
		},
	})
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file, or a new revision of a file with the same name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, _ := cmd.Flags().GetString("stage")
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			file, n, err := a.bench.Upload(cmd.Context(), stage, filepath.Base(args[0]), f)
			if err := report(cmd, n, err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id: %s\n", file.ID)
			return nil
		},
	}
	cmd.Flags().String("stage", "", "target stage (default: the selected stage)")
	return cmd
}

func newChildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "child <parent-id> <path>",
		Short: "Attach a child file to the current revision of a parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			child, n, err := a.bench.AttachChild(cmd.Context(), args[0], filepath.Base(args[1]), f)
			if err := report(cmd, n, err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id: %s\n", child.ID)
			return nil
		},
	}
}

func newRevCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rev",
		Short: "Work with file revisions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "select <file-id> <n>",
		Short: "Make revision n current",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid revision %q", args[1])
			}
			n, err := a.bench.SelectRevision(cmd.Context(), args[0], number)
			return report(cmd, n, err)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "upload <file-id> <path>",
		Short: "Upload new content as the next revision of a file, parent or child",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			file, n, err := a.bench.ReviseFile(cmd.Context(), args[0], filepath.Base(args[1]), f)
			if err := report(cmd, n, err); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rev: %d\n", file.CurrentRevisionNumber)
			return nil
		},
	})
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <file-id> <field> [value]",
		Short: "Set status, price, quantity or changeDescription of the current revision",
		Long:  "Set a metadata field of the current revision. An empty value clears price and quantity.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := engine.ParseField(args[1])
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 3 {
				value = args[2]
			}
			n, err := a.bench.UpdateMetadata(cmd.Context(), args[0], field, value)
			return report(cmd, n, err)
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <file-id> <rev> <text>",
		Short: "Set the change description of any revision",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid revision %q", args[1])
			}
			n, err := a.bench.SetChangeDescription(cmd.Context(), args[0], number, strings.Join(args[2:], " "))
			return report(cmd, n, err)
		},
	}
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <file-id> <from> <to>",
		Short: "Move a file between stages (children follow their parent)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.bench.MoveFile(cmd.Context(), args[0], args[1], args[2])
			return report(cmd, n, err)
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a file and, for a parent, its children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, n, err := a.bench.RemoveFile(cmd.Context(), args[0])
			return report(cmd, n, err)
		},
	}
}

func newURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url <file-id>",
		Short: "Print where the current revision's content can be read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.bench.BlobURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}
