package tasks

import (
	"time"
)

// LessonExportResult is the outcome of exporting one lesson.
type LessonExportResult struct {
	VideoID string
	Title   string
	Success bool
	Files   []string
	Error   error

	index int // position in the input, used to keep results in catalog order
}

// BulkExportResult summarizes a [BulkExport] run.
type BulkExportResult struct {
	TotalLessons      int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []LessonExportResult
}

type manifestEntry struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Format     string          `json:"format"`
	Total      int             `json:"total"`
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Lessons    []manifestEntry `json:"lessons"`
}

func newManifest(result *BulkExportResult, format string, now time.Time) manifest {
	m := manifest{
		ExportedAt: now,
		Format:     format,
		Total:      result.TotalLessons,
		Successful: result.SuccessfulExports,
		Failed:     result.FailedExports,
		Lessons:    make([]manifestEntry, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		entry := manifestEntry{ID: res.VideoID, Title: res.Title, Success: res.Success, Files: res.Files}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Lessons = append(m.Lessons, entry)
	}
	return m
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// full, skip
	}
}
