package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/peai/internal/formatter"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk lesson exports.
type BulkExportOpts struct {
	Format         formatter.Format // csv, markdown or txt
	OutputDir      string           // Base output directory (default: peai_export_{epoch})
	NumWorkers     int              // Concurrent workers (default: 4, max: 10)
	RateLimit      float64          // Cover downloads per second (default: 2)
	DownloadCovers bool             // Save cover images next to markdown exports
	Player         player.Options   // Flags of the player URLs written to CSV
}

type lessonJob struct {
	index int
	video models.Video
}

// BulkExport exports videos concurrently and writes export_manifest.json to the output directory.
//
// Failed lessons are recorded in the result rather than aborting the run. Results keep the order of
// videos. A cancelled ctx stops queueing, and the partial result is returned with the context error.
func BulkExport(ctx context.Context, prog chan<- ProgressUpdate, videos []models.Video, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatMarkdown
	}
	format, err := formatter.ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	opts.Format = format
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("peai_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalLessons:    len(videos),
		OutputDirectory: opts.OutputDir,
		Results:         make([]LessonExportResult, 0, len(videos)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan lessonJob, len(videos))
	results := make(chan LessonExportResult, len(videos))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, v := range videos {
			select {
			case <-ctx.Done():
				return
			case jobs <- lessonJob{index: i, video: v}:
				sendProgress(prog, queueUpdate(i+1, len(videos), v.Title))
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(videos), res))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(videos), res))
		}
	}

	slices.SortFunc(result.Results, func(a, b LessonExportResult) int { return a.index - b.index })

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(newManifest(result, string(opts.Format), time.Now().UTC()), true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := formatter.SaveToFile(data, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))
	return result, nil
}

// exportWorker exports lessons from the jobs channel until it closes or ctx is done.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan lessonJob,
	results chan<- LessonExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- exportLesson(ctx, limiter, job, opts)
	}
}

// exportLesson writes one lesson in the requested format.
func exportLesson(ctx context.Context, limiter *rate.Limiter, j lessonJob, opts BulkExportOpts) LessonExportResult {
	v := j.video
	result := LessonExportResult{
		VideoID: v.ID,
		Title:   v.Title,
		Files:   []string{},
		index:   j.index,
	}

	switch opts.Format {
	case formatter.FormatCSV:
		res, err := formatter.WriteCSVExport(v, filepath.Join(opts.OutputDir, v.ID), opts.Player)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{res.PartsFile, res.MetadataFile}

	case formatter.FormatMarkdown:
		download := opts.DownloadCovers && v.Cover != ""
		if download {
			if err := limiter.Wait(ctx); err != nil {
				result.Error = err
				return result
			}
		}
		res, err := formatter.WriteMarkdownExport(v, filepath.Join(opts.OutputDir, v.ID), download)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = res.Files

	case formatter.FormatText:
		path, err := formatter.WriteTextExport(v, filepath.Join(opts.OutputDir, v.ID+"_parts.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
