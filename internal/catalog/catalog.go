package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
	"github.com/desertthunder/peai/internal/validation"
)

//go:embed data/power-electronics-videos.json
var defaultFixture []byte

// Course describes the set of lessons a catalog holds.
type Course struct {
	Slug        string
	Title       string
	Description string
}

// Problem records a fixture entry that failed to decode or validate.
type Problem struct {
	Index int    // position in the fixture array
	ID    string // empty when the record had no usable id
	Err   error
}

func (p Problem) String() string {
	if p.ID == "" {
		return fmt.Sprintf("record %d: %v", p.Index, p.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", p.Index, p.ID, p.Err)
}

// Options configures [Load].
type Options struct {
	Course Course
	Logger *log.Logger
}

type entry struct {
	video models.Video
	err   error
}

// Catalog is the immutable, injected lesson catalog.
type Catalog struct {
	course   Course
	videos   []models.Video
	entries  map[string]entry
	problems []Problem
	index    bleve.Index
	logger   *log.Logger
}

// Load decodes a JSON array of video records from r.
//
// Only a document that is not a JSON array is an error; invalid records are kept as problems.
// Duplicate ids keep the first occurrence.
func Load(r io.Reader, opts Options) (*Catalog, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: catalog must be a JSON array of videos: %v", shared.ErrLoad, err)
	}

	c := &Catalog{
		course:  opts.Course,
		entries: make(map[string]entry, len(raw)),
		logger:  shared.WithLogger(logger, "component", "catalog"),
	}

	v := validation.New()
	for i, msg := range raw {
		video, err := decodeVideo(v, msg)
		id := strings.TrimSpace(video.ID)

		if _, dup := c.entries[id]; dup && id != "" {
			c.logger.Warn("duplicate video id ignored", "id", id, "index", i)
			continue
		}

		if err != nil {
			c.problems = append(c.problems, Problem{Index: i, ID: id, Err: err})
			c.logger.Warn("invalid catalog record", "index", i, "id", id, "error", err)
			if id != "" {
				c.entries[id] = entry{err: err}
			}
			continue
		}

		c.entries[id] = entry{video: video}
		c.videos = append(c.videos, video)
	}

	index, err := buildIndex(c.videos)
	if err != nil {
		return nil, err
	}
	c.index = index

	c.logger.Debug("catalog loaded", "videos", len(c.videos), "problems", len(c.problems))
	return c, nil
}

// LoadFile loads the catalog from the JSON file at path.
func LoadFile(path string, opts Options) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open catalog: %v", shared.ErrLoad, err)
	}
	defer f.Close()
	return Load(f, opts)
}

// Default loads the bundled power electronics fixture.
func Default(opts Options) (*Catalog, error) {
	return Load(bytes.NewReader(defaultFixture), opts)
}

// Open loads the catalog named by cfg, using the bundled fixture when no path is set.
func Open(cfg shared.CatalogConfig, logger *log.Logger) (*Catalog, error) {
	opts := Options{
		Course: Course{Slug: cfg.Course, Title: cfg.Title, Description: cfg.Description},
		Logger: logger,
	}
	if cfg.Path == "" {
		return Default(opts)
	}
	return LoadFile(cfg.Path, opts)
}

func decodeVideo(v *validation.Validator, msg json.RawMessage) (models.Video, error) {
	var video models.Video
	dec := json.NewDecoder(bytes.NewReader(msg))
	if err := dec.Decode(&video); err != nil {
		// Salvage the id so lookups of a malformed record can be diagnosed.
		var probe struct {
			ID any `json:"id"`
		}
		if json.Unmarshal(msg, &probe) == nil {
			if s, ok := probe.ID.(string); ok {
				video = models.Video{ID: s}
			}
		}
		return video, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	video.ID = strings.TrimSpace(video.ID)
	if err := v.Validate(video); err != nil {
		return video, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	return video, nil
}

// Course returns the course the catalog describes.
func (c *Catalog) Course() Course {
	return c.course
}

// FindVideo returns the video with the given id.
//
// An empty id, an unknown id and an id whose record failed validation all
// return an error wrapping [shared.ErrNotFound].
func (c *Catalog) FindVideo(id string) (models.Video, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		c.logger.Warn("video lookup with empty id")
		return models.Video{}, fmt.Errorf("%w: empty video id", shared.ErrNotFound)
	}

	e, ok := c.entries[id]
	if !ok {
		c.logger.Warn("video lookup miss", "id", id)
		return models.Video{}, fmt.Errorf("%w: video %q", shared.ErrNotFound, id)
	}

	if e.err != nil {
		c.logger.Warn("video lookup hit an invalid record", "id", id, "error", e.err)
		return models.Video{}, fmt.Errorf("%w: video %q is malformed", shared.ErrNotFound, id)
	}

	return e.video, nil
}

// Videos returns the valid videos in fixture order.
func (c *Catalog) Videos() []models.Video {
	out := make([]models.Video, len(c.videos))
	copy(out, c.videos)
	return out
}

// Len returns the number of valid videos.
func (c *Catalog) Len() int {
	return len(c.videos)
}

// Problems returns the fixture records that failed to decode or validate.
func (c *Catalog) Problems() []Problem {
	out := make([]Problem, len(c.problems))
	copy(out, c.problems)
	return out
}

// Close releases the search index.
func (c *Catalog) Close() error {
	if c.index == nil {
		return nil
	}
	return c.index.Close()
}

// IsNotFound reports whether err is a catalog miss.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
