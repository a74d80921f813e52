package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/skin-check/internal/picker"
	"github.com/example/skin-check/internal/render"
	"github.com/example/skin-check/internal/session"
	"github.com/example/skin-check/internal/usecase"
)

var errClassificationFailed = errors.New("classification failed")

func newClassifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Classify a single photo and print the result",
		Example: `  skincheck classify ./photos/arm.jpg
  skincheck classify --json ./photos/arm.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			manager := usecase.NewSelectionManager(
				a.session,
				a.permission,
				picker.FilePicker{Path: args[0], Root: a.cfg.GalleryRoot},
				a.logger,
			)
			sel, err := manager.RequestImage(ctx)
			switch {
			case errors.Is(err, usecase.ErrPermissionDenied):
				return errors.New(usecase.PermissionDeniedNotice)
			case err != nil:
				return err
			case sel.Status == usecase.NoSelection:
				return errors.New(usecase.NoImageNotice)
			}

			if _, err := a.submissions.Submit(ctx); err != nil {
				return err
			}

			snap := a.session.Snapshot()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(map[string]any{"snapshot": snap, "view": render.Format(snap)})
			} else {
				_, err = fmt.Fprint(out, render.Format(snap).String())
			}
			if err != nil {
				return err
			}
			if snap.State == session.StatusFailed {
				return errClassificationFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session snapshot as JSON")

	return cmd
}
