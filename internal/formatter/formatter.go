// package formatter exports lesson outlines to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat accepts the format names used by the CLI. "md" and "text" are aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, s)
	}
}

// Export renders video in format with player links built from opts.
func Export(video models.Video, format Format, opts player.Options) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(video, opts)
	case FormatMarkdown:
		return ExportToMarkdown(video, video.Cover)
	case FormatText:
		return ExportToText(video)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToCSV converts a video outline to CSV format with columns: Page, Title, Duration, PlayerURL
func ExportToCSV(video models.Video, opts player.Options) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Page", "Title", "Duration", "PlayerURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, part := range video.Parts {
		embed, err := player.BuildPlayerURL(video.Bvid, part.Page, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to build player url for page %d: %w", part.Page, err)
		}

		record := []string{
			strconv.Itoa(part.Page),
			part.Title,
			part.Duration,
			embed,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a video outline to Markdown with an optional cover image.
//
// Each part links to its page on bilibili.com.
func ExportToMarkdown(video models.Video, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", video.Title))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if video.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", video.Description))
	}

	buf.WriteString(fmt.Sprintf("**BV**: %s\n", video.Bvid))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n", video.Duration))
	buf.WriteString(fmt.Sprintf("**Parts**: %d\n\n", len(video.Parts)))

	buf.WriteString("## Parts\n\n")
	for i, part := range video.Parts {
		watch, err := player.WatchURL(video.Bvid, part.Page)
		if err != nil {
			return nil, fmt.Errorf("failed to build watch url for page %d: %w", part.Page, err)
		}
		buf.WriteString(fmt.Sprintf("%d. [P%d %s](%s) [%s]\n", i+1, part.Page, part.Title, watch, part.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a video outline to plain text format
func ExportToText(video models.Video) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Lesson: %s\n", video.Title))
	if video.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", video.Description))
	}
	buf.WriteString(fmt.Sprintf("Duration: %s\n", video.Duration))
	buf.WriteString(fmt.Sprintf("Parts: %d\n\n", len(video.Parts)))

	for _, part := range video.Parts {
		buf.WriteString(fmt.Sprintf("P%d. %s [%s]\n", part.Page, part.Title, part.Duration))
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of the video without its parts
func ToMetadataJSON(video models.Video) ([]byte, error) {
	meta := video
	meta.Parts = nil
	return shared.MarshalJSON(meta, true)
}

// SaveToFile writes data to path, creating parent directories as needed.
func SaveToFile(data []byte, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	PartsFile    string
	MetadataFile string
}

// WriteCSVExport exports a video outline to CSV format with accompanying metadata JSON file.
//
// Defaults to the video ID as the base filename & creates {base}_parts.csv and {base}_metadata.json
func WriteCSVExport(video models.Video, baseFilepath string, opts player.Options) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = video.ID
	}

	csvData, err := ExportToCSV(video, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	partsFile := baseFilepath + "_parts.csv"
	if err := SaveToFile(csvData, partsFile); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(video)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := SaveToFile(metadataJSON, metadataFile); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		PartsFile:    partsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	CoverErr   error // set when the cover could not be downloaded or saved
}

// WriteMarkdownExport exports a video outline to Markdown format in a dedicated directory.
//
// Directory name defaults to the video ID. When download is set the cover is saved next
// to README.md, otherwise the README links the remote cover.
func WriteMarkdownExport(video models.Video, outputDir string, download bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = video.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	coverImageFilename := video.Cover
	if download && video.Cover != "" {
		imageData, err := DownloadImage(video.Cover)
		if err != nil {
			result.CoverErr = err
		} else {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				result.CoverErr = fmt.Errorf("failed to save cover image: %w", err)
			} else {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(video, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a video outline to plain text format.
//
// Defaults to {video.ID}_parts.txt as the filename.
func WriteTextExport(video models.Video, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_parts.txt", video.ID)
	}

	textData, err := ExportToText(video)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := SaveToFile(textData, path); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
