package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/catalog"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
	tu "github.com/desertthunder/peai/internal/testing"
)

var sessionKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// writeTestConfig saves a config pointing the database into a temp dir and returns its path.
func writeTestConfig(t *testing.T, edit func(*shared.Config)) string {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "peai.db")
	config.Catalog.Path = ""
	config.Log.Level = "error"
	if edit != nil {
		edit(config)
	}

	path := filepath.Join(dir, "config.toml")
	if err := shared.SaveConfig(config, path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}
	return path
}

// run executes the CLI with args against a fresh runner and returns what it printed.
func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger: log.New(&bytes.Buffer{}),
		Output: output,
		Opener: func(string) error { return nil },
	})
	t.Cleanup(runner.close)

	argv := append([]string{"peai", "--config", configPath}, args...)
	err := newApp(runner).Run(context.Background(), argv)
	return output.String(), err
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			cat, err := catalog.Default(catalog.Options{})
			if err != nil {
				t.Fatalf("failed to load catalog: %v", err)
			}
			defer cat.Close()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Catalog:    cat,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.catalog != cat {
				t.Error("expected catalog to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config != nil {
				t.Error("expected config to be loaded lazily")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.open == nil {
				t.Error("expected a default browser opener")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"serve", "setup", "catalog", "sessions", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, name := range want {
			if commands[i].Name != name {
				t.Errorf("expected command %d to be %s, got %s", i, name, commands[i].Name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("expected compact JSON, got %q", output.String())
			}
		})

		t.Run("fails on unmarshalable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected error for channel value")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		runner.writePlain("Hello %s", "World")
		runner.writePlainln("%d lesson(s)", 6)
		runner.writePlainHeader("Title")

		result := output.String()
		if !strings.HasPrefix(result, "Hello World\n6 lesson(s)\n") {
			t.Errorf("unexpected plain output: %q", result)
		}
		if !strings.Contains(result, "═\nTitle\n═") {
			t.Errorf("expected header around title, got %q", result)
		}
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("loads the config file", func(t *testing.T) {
			path := writeTestConfig(t, func(c *shared.Config) { c.Server.Port = 9123 })

			runner := NewRunner(RunnerOpts{Logger: log.New(&bytes.Buffer{}), Output: &bytes.Buffer{}})
			if err := newApp(runner).Run(context.Background(), []string{"peai", "--config", path, "setup", "keygen"}); err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
			if runner.config.Server.Port != 9123 {
				t.Errorf("expected port from file, got %d", runner.config.Server.Port)
			}
			if runner.logger.GetLevel() != log.ErrorLevel {
				t.Errorf("expected error level from config, got %v", runner.logger.GetLevel())
			}
		})

		t.Run("falls back to defaults for a missing file", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: log.New(&bytes.Buffer{}), Output: &bytes.Buffer{}})
			missing := filepath.Join(t.TempDir(), "missing.toml")
			if err := newApp(runner).Run(context.Background(), []string{"peai", "-c", missing, "setup", "keygen"}); err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if runner.config == nil || runner.config.Server.Port != shared.DefaultConfig().Server.Port {
				t.Error("expected default config")
			}
		})

		t.Run("keeps an injected config", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config, Logger: log.New(&bytes.Buffer{}), Output: &bytes.Buffer{}})
			if err := newApp(runner).Run(context.Background(), []string{"peai", "--verbose", "setup", "keygen"}); err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if runner.config != config {
				t.Error("expected injected config to be kept")
			}
			if runner.logger.GetLevel() != log.DebugLevel {
				t.Errorf("expected --verbose to enable debug, got %v", runner.logger.GetLevel())
			}
		})
	})
}

func TestCatalogCommands(t *testing.T) {
	path := writeTestConfig(t, nil)

	t.Run("list as JSON", func(t *testing.T) {
		out, err := run(t, path, "catalog", "list", "--json")
		if err != nil {
			t.Fatalf("catalog list failed: %v", err)
		}

		var videos []models.Video
		if err := json.Unmarshal([]byte(out), &videos); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out)
		}
		if len(videos) < 6 || videos[0].ID != "pe-01" {
			t.Errorf("expected the bundled lessons, got %d", len(videos))
		}
	})

	t.Run("list as table", func(t *testing.T) {
		out, err := run(t, path, "cat", "list")
		if err != nil {
			t.Fatalf("catalog list failed: %v", err)
		}
		if !strings.Contains(out, "BV1xx411c7mD") || !strings.Contains(out, "lesson(s)") {
			t.Errorf("unexpected table output:\n%s", out)
		}
	})

	t.Run("list with a query", func(t *testing.T) {
		out, err := run(t, path, "catalog", "list", "--query", "器件", "--json")
		if err != nil {
			t.Fatalf("catalog list failed: %v", err)
		}
		if !strings.Contains(out, `"pe-02"`) {
			t.Errorf("expected pe-02 in search results, got:\n%s", out)
		}
	})

	t.Run("show clamps the page", func(t *testing.T) {
		out, err := run(t, path, "catalog", "show", "pe-01", "--page", "99")
		if err != nil {
			t.Fatalf("catalog show failed: %v", err)
		}
		if !strings.Contains(out, "> P3") {
			t.Errorf("expected the last part to be marked, got:\n%s", out)
		}
		if !strings.Contains(out, "Progress: 100% (3/3)") {
			t.Errorf("expected full progress, got:\n%s", out)
		}
	})

	t.Run("show unknown id", func(t *testing.T) {
		_, err := run(t, path, "catalog", "show", "pe-99")
		if !catalog.IsNotFound(err) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("show without id", func(t *testing.T) {
		_, err := run(t, path, "catalog", "show")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("embed", func(t *testing.T) {
		out, err := run(t, path, "catalog", "embed", "pe-01", "--page", "2")
		if err != nil {
			t.Fatalf("catalog embed failed: %v", err)
		}
		if !strings.Contains(out, "bvid=BV1xx411c7mD&p=2") || !strings.Contains(out, "muted=1") {
			t.Errorf("unexpected embed url: %s", out)
		}
		if strings.Contains(out, "autoplay") {
			t.Errorf("autoplay should be omitted by default: %s", out)
		}
	})

	t.Run("embed as iframe", func(t *testing.T) {
		out, err := run(t, path, "catalog", "embed", "pe-01", "--page", "2", "--autoplay", "--iframe")
		if err != nil {
			t.Fatalf("catalog embed failed: %v", err)
		}
		for _, want := range []string{"<iframe", "&amp;p=2", "autoplay=1", `sandbox="`, "电力电子技术 绪论 - 电力电子技术发展史"} {
			if !strings.Contains(out, want) {
				t.Errorf("iframe missing %q: %s", want, out)
			}
		}
	})

	t.Run("export to stdout", func(t *testing.T) {
		out, err := run(t, path, "catalog", "export", "pe-01", "--format", "txt")
		if err != nil {
			t.Fatalf("catalog export failed: %v", err)
		}
		if !strings.HasPrefix(out, "Lesson: 电力电子技术 绪论\n") {
			t.Errorf("unexpected export: %s", out)
		}
	})

	t.Run("export to files", func(t *testing.T) {
		dir := t.TempDir()

		if _, err := run(t, path, "catalog", "export", "pe-01", "--format", "csv", "-o", filepath.Join(dir, "pe-01.csv")); err != nil {
			t.Fatalf("csv export failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "pe-01_parts.csv"))
		tu.AssertFileExists(t, filepath.Join(dir, "pe-01_metadata.json"))

		mdDir := filepath.Join(dir, "markdown")
		if _, err := run(t, path, "catalog", "export", "pe-01", "--format", "md", "-o", mdDir); err != nil {
			t.Fatalf("markdown export failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(mdDir, "README.md"))
	})

	t.Run("export all lessons", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "all")
		out, err := run(t, path, "catalog", "export", "--all", "--format", "txt", "-o", dir, "--workers", "2")
		if err != nil {
			t.Fatalf("bulk export failed: %v", err)
		}
		if !strings.Contains(out, "Exported 6/6 lesson(s)") {
			t.Errorf("unexpected bulk export output: %s", out)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		tu.AssertFileExists(t, filepath.Join(dir, "pe-06_parts.txt"))
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		_, err := run(t, path, "catalog", "export", "pe-01", "--format", "pdf")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("validate", func(t *testing.T) {
		out, err := run(t, path, "catalog", "validate")
		if err != nil {
			t.Fatalf("bundled fixture should validate: %v", err)
		}
		if !strings.Contains(out, "0 invalid") {
			t.Errorf("unexpected validate output: %s", out)
		}

		fixture := filepath.Join(t.TempDir(), "videos.json")
		data := `[
			{"id": "ok", "title": "t", "bvid": "BV1xx411c7mD", "cover": "c", "duration": "1:00", "parts": [{"page": 1, "title": "p", "duration": "1:00"}]},
			{"id": "bad", "title": "t", "bvid": "'; DROP--", "cover": "c", "duration": "1:00", "parts": [{"page": 1, "title": "p", "duration": "1:00"}]}
		]`
		if err := os.WriteFile(fixture, []byte(data), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		out, err = run(t, path, "catalog", "validate", "--file", fixture)
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if !strings.Contains(out, "1 valid, 1 invalid") || !strings.Contains(out, "(bad)") {
			t.Errorf("unexpected validate output: %s", out)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "config.toml")

		out, err := run(t, path, "setup", "config")
		if err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		if !strings.Contains(out, path) {
			t.Errorf("expected path in output, got %s", out)
		}

		config, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("written config does not load: %v", err)
		}
		if !sessionKeyPattern.MatchString(config.Auth.SessionKey) {
			t.Errorf("expected a generated session key, got %q", config.Auth.SessionKey)
		}

		if _, err := run(t, path, "setup", "config"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}
		if _, err := run(t, path, "setup", "config", "--force"); err != nil {
			t.Errorf("--force should overwrite: %v", err)
		}
	})

	t.Run("database, status and rollback", func(t *testing.T) {
		path := writeTestConfig(t, nil)

		out, err := run(t, path, "setup", "database")
		if err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		if strings.Contains(out, "Applied 0 migration") {
			t.Errorf("expected migrations to be applied on a new database: %s", out)
		}

		out, err = run(t, path, "setup", "database")
		if err != nil {
			t.Fatalf("second setup database failed: %v", err)
		}
		if !strings.Contains(out, "Applied 0 migration(s)") {
			t.Errorf("expected no pending migrations: %s", out)
		}

		out, err = run(t, path, "setup", "status")
		if err != nil {
			t.Fatalf("setup status failed: %v", err)
		}
		if strings.Contains(out, "pending") {
			t.Errorf("expected every migration applied: %s", out)
		}

		if _, err := run(t, path, "setup", "rollback"); err != nil {
			t.Fatalf("setup rollback failed: %v", err)
		}
		out, _ = run(t, path, "setup", "status")
		if !strings.Contains(out, "pending") {
			t.Errorf("expected a pending migration after rollback: %s", out)
		}
	})

	t.Run("keygen", func(t *testing.T) {
		out, err := run(t, writeTestConfig(t, nil), "setup", "keygen")
		if err != nil {
			t.Fatalf("setup keygen failed: %v", err)
		}
		if !sessionKeyPattern.MatchString(strings.TrimSpace(out)) {
			t.Errorf("expected 64 hex chars, got %q", out)
		}
	})
}

func TestSessionsCommands(t *testing.T) {
	path := writeTestConfig(t, nil)

	out, err := run(t, path, "sessions", "prune")
	if err != nil {
		t.Fatalf("sessions prune failed: %v", err)
	}
	if !strings.Contains(out, "Removed 0 session(s)") {
		t.Errorf("unexpected prune output: %s", out)
	}

	out, err = run(t, path, "sessions", "list", "--json")
	if err != nil {
		t.Fatalf("sessions list failed: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected no sessions, got %s", out)
	}
}

func TestServe(t *testing.T) {
	t.Run("rejects an invalid config before listening", func(t *testing.T) {
		path := writeTestConfig(t, func(c *shared.Config) {
			c.Chat.Provider = "gemini"
			c.Chat.APIKey = ""
		})
		t.Setenv("GEMINI_API_KEY", "")

		_, err := run(t, path, "serve")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
