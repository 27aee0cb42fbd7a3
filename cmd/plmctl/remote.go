package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"miniplm/models"
)

var errOffline = errors.New("this command needs the server (drop --offline)")

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the server connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if a.api == nil {
				fmt.Fprintln(out, "offline")
				return nil
			}
			if err := a.api.Health(cmd.Context()); err != nil {
				fmt.Fprintf(out, "%s: unavailable (%v)\n", a.api.BaseURL(), err)
				return nil
			}
			fmt.Fprintf(out, "%s: ok\n", a.api.BaseURL())
			return nil
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <file-id>",
		Short: "Write the content of a file's current revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := a.bench.BlobURL(args[0])
			if err != nil {
				return err
			}

			var data []byte
			if models.IsInlineBlob(ref) {
				data, err = decodeInline(ref)
			} else if a.api != nil {
				data, _, err = a.api.FetchURL(cmd.Context(), ref)
			} else {
				err = errOffline
			}
			if err != nil {
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output path (default stdout)")
	return cmd
}

// decodeInline decodes a base64 data URI.
func decodeInline(ref string) ([]byte, error) {
	_, payload, ok := strings.Cut(ref, ";base64,")
	if !ok {
		return nil, fmt.Errorf("unsupported inline content")
	}
	return base64.StdEncoding.DecodeString(payload)
}

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <file-id>",
		Short: "Print a signed, expiring media URL for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.api == nil {
				return errOffline
			}
			p, _ := a.bench.Active()
			label, idx, ok := p.FindFile(args[0])
			if !ok {
				return fmt.Errorf("file %s not found", args[0])
			}
			file := p.FilesByStage[label][idx]
			link, err := a.api.MediaLink(cmd.Context(), file.Name(), file.Current().RemoteID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires %s\n", link.URL, link.ExpiresAt)
			return nil
		},
	}
}
