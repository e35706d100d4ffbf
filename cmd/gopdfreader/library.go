/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"gopdfreader/internal/app"
	"gopdfreader/internal/export"
	"gopdfreader/internal/library"
	applog "gopdfreader/internal/log"
	"gopdfreader/internal/tui"
)

func newLibraryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		Short:   "Manage the library of opened documents",
	}
	cmd.AddCommand(
		newLibraryListCmd(c),
		newLibraryAddCmd(c),
		newLibraryRemoveCmd(c),
		newLibraryExportCmd(c),
		newLibraryBrowseCmd(c),
	)
	return cmd
}

func newLibraryListCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			entries := rt.Catalog.List()
			out := cmd.OutOrStdout()
			if asJSON {
				raw, err := library.Encode(entries)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := json.Indent(&buf, raw, "", "  "); err != nil {
					return err
				}
				buf.WriteByte('\n')
				_, err = out.Write(buf.Bytes())
				return err
			}
			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "The library is empty.")
				return err
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "TITLE", "ADDED", "LOCATOR")
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				t.Row(strconv.FormatInt(e.ID, 10), e.Title, e.AddedDate.Local().Format(app.DateLayout), applog.RedactLocator(e.Locator))
			}
			_, err = fmt.Fprintln(out, t.Render())
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON form")
	return cmd
}

func newLibraryAddCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add <locator>",
		Short: "Open a document and add it to the library",
		Long: `Add opens the document at <locator> (an http(s) URL, a file URL or a path)
and records it only when it loads.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			e, info, err := rt.AddDocument(cmd.Context(), args[0])
			if e.ID == 0 {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d, %d pages)\n", e.Title, e.ID, info.Pages)
			if errors.Is(err, library.ErrPersist) {
				return fmt.Errorf("added for this session only: %w", err)
			}
			return err
		},
	}
}

func newLibraryRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove an entry from the library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.RemoveEntry(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d\n", id)
			return nil
		},
	}
}

func newLibraryExportCmd(c *cli) *cobra.Command {
	var format, out, title string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the library as a PDF index, JSON or a zip bundle",
		Example: `  gopdfreader library export -o library.pdf
  gopdfreader library export --format zip -o backup.zip`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			err = export.Library(rt.Catalog.List(), export.Options{
				Format:  format,
				OutPath: out,
				Title:   title,
				Thumbs:  func(id int64) []byte { return rt.ThumbnailPNG(cmd.Context(), id) },
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", rt.Catalog.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "pdf, json or zip (default from the output extension)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	cmd.Flags().StringVar(&title, "title", "", "heading of the PDF index")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newLibraryBrowseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse and edit the library in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			return tui.Run(tui.Options{
				Context: cmd.Context(),
				Catalog: rt.Catalog,
				Engine:  rt.Engine,
				Add: func(ctx context.Context, locator string) (library.Entry, error) {
					e, _, err := rt.AddDocument(ctx, locator)
					return e, err
				},
				Remove: rt.RemoveEntry,
			})
		},
	}
}
