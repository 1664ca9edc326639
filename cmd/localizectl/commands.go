package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"course-localization-service/internal/app"
	"course-localization-service/internal/artifact"
	"course-localization-service/internal/language"
	"course-localization-service/internal/schema"
	"course-localization-service/internal/service/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <object-path>",
		Short: "Localize an uploaded video into every supported language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				report, err := a.Orchestrator.HandleUpload(cmd.Context(), args[0])
				if report == nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderReport(report))
				if err != nil {
					return fmt.Errorf("localization %s: %w", report.Status(), err)
				}
				return nil
			})
		},
	}
}

func renderReport(r *pipeline.Report) string {
	if r.Skipped {
		return fmt.Sprintf("skipped %s: %v\n", r.Object, r.SkipReason)
	}

	header := fmt.Sprintf("course %s: %s in %s\n", r.CourseID, r.Status(), r.Duration.Round(time.Millisecond))
	if r.Fatal != nil {
		return header + fmt.Sprintf("error: %v\n", r.Fatal)
	}
	if r.EmptyTranscript {
		return header + "no speech detected, nothing written besides the audio\n"
	}

	rows := make([][]string, 0, len(r.Languages))
	for _, res := range r.Languages {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		rows = append(rows, []string{res.Language, res.CaptionPath, res.AudioPath, status})
	}
	return header + renderTable([]string{"Language", "Caption", "Audio", "Status"}, rows, nil) + "\n"
}

func newPathsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "paths <courseId>",
		Short: "List the artifact paths a complete run produces for a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := schema.ValidateCourseID(args[0]); err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			langs, err := cfg.LanguageSet()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, e := range artifact.Layout(args[0], langs) {
				rows = append(rows, []string{string(e.Kind), e.Language, e.Path, e.ContentType})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Kind", "Language", "Path", "Content Type"}, rows, nil))
			return nil
		},
	}
}

func newLanguagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "Show the supported languages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			langs, err := cfg.LanguageSet()
			if err != nil {
				return err
			}

			var rows [][]string
			for i, code := range langs.Codes() {
				role := "target"
				if langs.IsSource(code) {
					role = "source"
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), code, language.DisplayName(code), role})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Code", "Name", "Role"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
}

func newCaptionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "caption <courseId> <lang>",
		Short: "Print a stored caption",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID := args[0]
			if err := schema.ValidateCourseID(courseID); err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				lang := language.Normalize(args[1])
				if !a.Languages.Supports(lang) {
					return fmt.Errorf("unsupported language %q", args[1])
				}
				data, err := a.Store.Get(cmd.Context(), artifact.CaptionPath(courseID, lang))
				if err != nil {
					return err
				}
				if len(data) == 0 {
					return errors.New("caption is empty")
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}
