package formatter

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/shared"
	th "github.com/desertthunder/peai/internal/testing"
)

func testVideo() models.Video {
	return models.Video{
		ID:          "pe-01",
		Title:       "电力电子技术 绪论",
		Bvid:        "BV1xx411c7mD",
		Cover:       "https://i0.hdslb.com/bfs/archive/pe-01.jpg",
		Duration:    "1:02:30",
		Description: "课程介绍",
		Parts: []models.VideoPart{
			{Page: 1, Title: "课程介绍", Duration: "18:20"},
			{Page: 2, Title: "电力电子技术发展史", Duration: "21:05"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", FormatCSV},
		{"CSV", FormatCSV},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"txt", FormatText},
		{" text ", FormatText},
	}

	for _, tc := range tests {
		got, err := ParseFormat(tc.in)
		if err != nil {
			t.Errorf("ParseFormat(%q) returned error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ParseFormat("pdf"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag for pdf, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testVideo(), player.DefaultOptions())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines: %s", len(lines), data)
		}
		if lines[0] != "Page,Title,Duration,PlayerURL" {
			t.Errorf("unexpected header: %s", lines[0])
		}
		want := "2,电力电子技术发展史,21:05,https://player.bilibili.com/player.html?bvid=BV1xx411c7mD&p=2"
		if !strings.HasPrefix(lines[2], want) {
			t.Errorf("expected row to start with %q, got %q", want, lines[2])
		}
		if !strings.Contains(lines[2], "muted=1") {
			t.Errorf("expected default options to mute the player, got %q", lines[2])
		}
	})

	t.Run("ExportToCSV rejects a bad bvid", func(t *testing.T) {
		video := testVideo()
		video.Bvid = "BV<script>"
		if _, err := ExportToCSV(video, player.DefaultOptions()); !errors.Is(err, player.ErrRejected) {
			t.Errorf("expected ErrRejected, got %v", err)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testVideo(), "cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			output := string(data)

			for _, want := range []string{
				"# 电力电子技术 绪论",
				"![Cover](cover.jpg)",
				"**Description**: 课程介绍",
				"**Parts**: 2",
				"1. [P1 课程介绍](https://www.bilibili.com/video/BV1xx411c7mD) [18:20]",
				"2. [P2 电力电子技术发展史](https://www.bilibili.com/video/BV1xx411c7mD?p=2) [21:05]",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
		})

		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testVideo(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if strings.Contains(string(data), "![Cover]") {
				t.Error("Markdown should not have a cover without an image")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testVideo())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Lesson: 电力电子技术 绪论\n") {
			t.Errorf("unexpected text header: %s", output)
		}
		if !strings.Contains(output, "P2. 电力电子技术发展史 [21:05]") {
			t.Errorf("text missing part 2: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testVideo())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, `"bvid": "BV1xx411c7mD"`) {
			t.Errorf("metadata missing bvid: %s", output)
		}
		if strings.Contains(output, `"page"`) {
			t.Errorf("metadata should not contain parts: %s", output)
		}
	})

	t.Run("Export dispatches on format", func(t *testing.T) {
		for _, f := range []Format{FormatCSV, FormatMarkdown, FormatText} {
			data, err := Export(testVideo(), f, player.DefaultOptions())
			if err != nil {
				t.Errorf("Export(%s) failed: %v", f, err)
			}
			if len(data) == 0 {
				t.Errorf("Export(%s) returned no data", f)
			}
		}
		if _, err := Export(testVideo(), Format("pdf"), player.DefaultOptions()); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(""); err == nil {
			t.Error("expected error for empty URL")
		}
	})

	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg"))
		}))
		defer srv.Close()

		data, err := DownloadImage(srv.URL)
		if err != nil {
			t.Fatalf("DownloadImage failed: %v", err)
		}
		if string(data) != "jpeg" {
			t.Errorf("expected image bytes, got %q", data)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		if _, err := DownloadImage(srv.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("SaveToFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "outline.txt")
		if err := SaveToFile([]byte("hello"), path); err != nil {
			t.Fatalf("SaveToFile failed: %v", err)
		}
		if got := th.MustReadFile(t, path); got != "hello" {
			t.Errorf("expected hello, got %q", got)
		}

		if err := SaveToFile([]byte("x"), ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := WriteCSVExport(testVideo(), "", player.DefaultOptions())
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.PartsFile != "pe-01_parts.csv" || result.MetadataFile != "pe-01_metadata.json" {
				t.Errorf("unexpected file names: %+v", result)
			}
			th.AssertFileExists(t, result.PartsFile)
			th.AssertFileExists(t, result.MetadataFile)

			if !strings.Contains(th.MustReadFile(t, result.PartsFile), "Page,Title,Duration,PlayerURL") {
				t.Error("CSV file missing headers")
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "out", "lesson")
			result, err := WriteCSVExport(testVideo(), base, player.DefaultOptions())
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			th.AssertFileExists(t, base+"_parts.csv")
			th.AssertFileExists(t, result.MetadataFile)
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithDefaultDirectory", func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := WriteMarkdownExport(testVideo(), "", false)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			th.AssertDirExists(t, result.Directory)

			content := th.MustReadFile(t, filepath.Join("pe-01", "README.md"))
			if !strings.Contains(content, "![Cover](https://i0.hdslb.com/bfs/archive/pe-01.jpg)") {
				t.Errorf("README should link the remote cover, got:\n%s", content)
			}
		})

		t.Run("DownloadsCover", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("jpeg"))
			}))
			defer srv.Close()

			video := testVideo()
			video.Cover = srv.URL + "/cover.jpg"
			dir := filepath.Join(t.TempDir(), "lesson")

			result, err := WriteMarkdownExport(video, dir, true)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.CoverErr != nil {
				t.Fatalf("unexpected cover error: %v", result.CoverErr)
			}
			th.AssertFileExists(t, result.CoverImage)
			if len(result.Files) != 2 {
				t.Errorf("expected cover and README, got %v", result.Files)
			}
			if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
				t.Error("README should reference the downloaded cover")
			}
		})

		t.Run("CoverFailureKeepsRemoteLink", func(t *testing.T) {
			srv := httptest.NewServer(http.NotFoundHandler())
			defer srv.Close()

			video := testVideo()
			video.Cover = srv.URL + "/missing.jpg"

			result, err := WriteMarkdownExport(video, filepath.Join(t.TempDir(), "lesson"), true)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if result.CoverErr == nil {
				t.Error("expected a cover error")
			}
			if result.CoverImage != "" {
				t.Errorf("expected no local cover, got %s", result.CoverImage)
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			t.Chdir(t.TempDir())

			path, err := WriteTextExport(testVideo(), "")
			if err != nil {
				t.Fatalf("WriteTextExport failed: %v", err)
			}
			if path != "pe-01_parts.txt" {
				t.Errorf("expected default path, got %s", path)
			}
			th.AssertFileExists(t, path)
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			want := filepath.Join(t.TempDir(), "outline.txt")
			path, err := WriteTextExport(testVideo(), want)
			if err != nil {
				t.Fatalf("WriteTextExport failed: %v", err)
			}
			if path != want {
				t.Errorf("expected %s, got %s", want, path)
			}
		})
	})
}
