package main

import (
	"context"
	"fmt"
	"html"
	"path/filepath"

	"github.com/desertthunder/peai/internal/catalog"
	"github.com/desertthunder/peai/internal/formatter"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/shared"
	"github.com/desertthunder/peai/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CatalogList prints the lessons of the configured catalog, optionally filtered by a search query.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	cat, err := r.loadCatalog()
	if err != nil {
		return err
	}

	query := cmd.String("query")
	videos, err := cat.Search(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(videos, cmd.Bool("pretty"))
	}

	course := cat.Course()
	title := course.Title
	if query != "" {
		title = fmt.Sprintf("%s: %q", title, query)
	}
	r.writePlainHeader(title)
	if len(videos) == 0 {
		return r.writePlain("No lessons found\n")
	}
	for _, v := range videos {
		r.writePlain("%-8s %-12s %3d part(s)  %-8s %s\n", v.ID, v.Bvid, len(v.Parts), v.Duration, v.Title)
	}
	return r.writePlainln("%d lesson(s)", len(videos))
}

// CatalogShow prints one lesson with its parts, marking the part the page flag resolves to.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	video, err := r.findVideo(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(video, cmd.Bool("pretty"))
	}

	nav := player.Resolve(video, cmd.String("page"))
	if nav.Corrected() {
		r.logger.Warn("page out of range, clamped", "requested", nav.Requested, "page", nav.Page)
	}

	r.writePlainHeader(video.Title)
	r.writePlain("BV:       %s\n", video.Bvid)
	r.writePlain("Duration: %s\n", video.Duration)
	if video.Description != "" {
		r.writePlain("About:    %s\n", video.Description)
	}
	r.writePlain("Progress: %d%% (%d/%d)\n\n", nav.Progress(), nav.Page, nav.Total)

	for _, p := range video.Parts {
		marker := " "
		if nav.Part != nil && p.Page == nav.Part.Page {
			marker = ">"
		}
		r.writePlain("%s P%-3d %-8s %s\n", marker, p.Page, p.Duration, p.Title)
	}
	return nil
}

// CatalogValidate loads a fixture and reports the records that failed validation.
//
// Returns an error wrapping [shared.ErrValidation] when any record is invalid.
func (r *Runner) CatalogValidate(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Catalog
	if file := cmd.String("file"); file != "" {
		cfg.Path = file
	}

	cat, err := catalog.Open(cfg, r.logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	source := cfg.Path
	if source == "" {
		source = "bundled fixture"
	}

	problems := cat.Problems()
	r.writePlain("%s: %d valid, %d invalid\n", source, cat.Len(), len(problems))
	for _, p := range problems {
		r.writePlain("  %s\n", p)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %d invalid record(s) in %s", shared.ErrValidation, len(problems), source)
	}
	return nil
}

// CatalogEmbed prints the sanitized player URL for a lesson part.
func (r *Runner) CatalogEmbed(ctx context.Context, cmd *cli.Command) error {
	video, err := r.findVideo(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	nav := player.Resolve(video, cmd.String("page"))
	opts := player.Options{Autoplay: cmd.Bool("autoplay"), Muted: cmd.Bool("muted")}

	embed, err := player.BuildPlayerURL(video.Bvid, nav.Page, opts)
	if err != nil {
		return err
	}

	if !cmd.Bool("iframe") {
		return r.writePlain("%s\n", embed)
	}

	title := video.Title
	if nav.Part != nil && video.MultiPart() {
		title = fmt.Sprintf("%s - %s", video.Title, nav.Part.Title)
	}
	return r.writePlain(
		"<iframe src=\"%s\" title=\"%s\" sandbox=\"%s\" referrerpolicy=\"%s\" allowfullscreen></iframe>\n",
		html.EscapeString(embed), html.EscapeString(title), player.Sandbox, player.ReferrerPolicy,
	)
}

// CatalogExport writes a lesson outline as CSV, Markdown or plain text.
//
// Without --output the outline goes to stdout. Markdown exports to a path become a
// directory holding README.md and, with --download-cover, the cover image.
func (r *Runner) CatalogExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if cmd.Bool("all") {
		return r.exportAll(ctx, cmd, format)
	}

	video, err := r.findVideo(cmd.StringArg("id"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		data, err := formatter.Export(video, format, player.DefaultOptions())
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	switch format {
	case formatter.FormatCSV:
		base := output
		if ext := filepath.Ext(base); ext == ".csv" {
			base = base[:len(base)-len(ext)]
		}
		result, err := formatter.WriteCSVExport(video, base, player.DefaultOptions())
		if err != nil {
			return err
		}
		return r.writePlain("Wrote %s and %s\n", result.PartsFile, result.MetadataFile)

	case formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(video, output, cmd.Bool("download-cover"))
		if err != nil {
			return err
		}
		if result.CoverErr != nil {
			r.logger.Warn("cover image not saved, linking the remote image", "error", result.CoverErr)
		}
		for _, f := range result.Files {
			r.writePlain("Wrote %s\n", f)
		}
		return nil

	default:
		path, err := formatter.WriteTextExport(video, output)
		if err != nil {
			return err
		}
		return r.writePlain("Wrote %s\n", path)
	}
}

// exportAll writes every lesson with a worker pool and reports progress as it goes.
func (r *Runner) exportAll(ctx context.Context, cmd *cli.Command, format formatter.Format) error {
	cat, err := r.loadCatalog()
	if err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	result, err := tasks.BulkExport(ctx, prog, cat.Videos(), tasks.BulkExportOpts{
		Format:         format,
		OutputDir:      cmd.String("output"),
		NumWorkers:     int(cmd.Int("workers")),
		DownloadCovers: cmd.Bool("download-cover"),
		Player:         player.DefaultOptions(),
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("Exported %d/%d lesson(s) to %s\n", result.SuccessfulExports, result.TotalLessons, result.OutputDirectory)
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("  %s: %v\n", res.VideoID, res.Error)
		}
	}
	if result.FailedExports > 0 {
		return fmt.Errorf("%w: %d lesson(s) failed to export", shared.ErrLoad, result.FailedExports)
	}
	return r.writePlain("Manifest: %s\n", result.ManifestPath)
}

func (r *Runner) findVideo(id string) (models.Video, error) {
	if id == "" {
		return models.Video{}, fmt.Errorf("%w: lesson id", shared.ErrMissingArgument)
	}

	cat, err := r.loadCatalog()
	if err != nil {
		return models.Video{}, err
	}
	return cat.FindVideo(id)
}
