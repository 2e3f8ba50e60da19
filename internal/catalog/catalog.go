package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/sql-escape-room/internal/models"
)

// Identifier interpolation into sandbox DDL only ever consumes names that
// passed this check at catalog load time.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Catalog is the read-only registry of puzzle levels. It is populated at
// startup (and on explicit reload) and safe for unbounded concurrent reads.
type Catalog struct {
	mu     sync.RWMutex
	levels map[int]*models.Level
}

// New creates an empty level catalog
func New() *Catalog {
	return &Catalog{
		levels: make(map[int]*models.Level),
	}
}

// LoadFromDir loads all YAML level files from a directory
func (c *Catalog) LoadFromDir(dir string) error {
	slog.Info("loading levels from directory", "dir", dir)

	patterns := []string{"*.yaml", "*.yml"}
	var files []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := c.LoadFromFile(file); err != nil {
			slog.Warn("failed to load level", "file", file, "error", err)
			continue
		}
		loaded++
	}

	if loaded == 0 {
		return fmt.Errorf("no levels loaded from %s", dir)
	}

	slog.Info("levels loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single level from a YAML file
func (c *Catalog) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var lf levelFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	level, err := lf.toLevel()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.levels[level.ID] = level
	c.mu.Unlock()

	slog.Info("level loaded", "id", level.ID, "title", level.Title)
	return nil
}

// Add programmatically adds a level
func (c *Catalog) Add(level *models.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.levels[level.ID] = level
}

// Get retrieves the full level definition. The full view carries seed
// rows, the reference query, and the unlock code: evaluator-only.
func (c *Catalog) Get(id int) (*models.Level, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	level, ok := c.levels[id]
	return level, ok
}

// GetPublic retrieves the player-facing projection of a level
func (c *Catalog) GetPublic(id int) (*models.PublicLevel, bool) {
	level, ok := c.Get(id)
	if !ok {
		return nil, false
	}
	return level.Public(), true
}

// Total returns the number of levels in the catalog
func (c *Catalog) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.levels)
}

// Reload replaces the catalog contents from a directory. The old contents
// stay live until the new set has loaded successfully.
func (c *Catalog) Reload(dir string) error {
	fresh := New()
	if err := fresh.LoadFromDir(dir); err != nil {
		return err
	}

	c.mu.Lock()
	c.levels = fresh.levels
	c.mu.Unlock()

	return nil
}

// levelFile represents the YAML structure of a level file
type levelFile struct {
	ID                int         `yaml:"id"`
	Level             string      `yaml:"level"`
	Title             string      `yaml:"title"`
	StorySetup        string      `yaml:"story_setup"`
	GatekeeperMessage string      `yaml:"gatekeeper_message"`
	Hint              string      `yaml:"hint"`
	Tables            []tableFile `yaml:"tables"`
	ReferenceQuery    string      `yaml:"reference_query"`
	UnlockCode        string      `yaml:"unlock_code"`
}

// tableFile represents one seed table within a level file
type tableFile struct {
	Name    string           `yaml:"name"`
	Columns []string         `yaml:"columns"`
	Rows    []map[string]any `yaml:"rows"`
}

// toLevel validates the raw file and converts it to the domain type
func (lf *levelFile) toLevel() (*models.Level, error) {
	if lf.ID <= 0 {
		return nil, fmt.Errorf("level id must be positive, got %d", lf.ID)
	}
	if lf.Title == "" {
		return nil, fmt.Errorf("level %d: title is required", lf.ID)
	}
	if lf.ReferenceQuery == "" {
		return nil, fmt.Errorf("level %d: reference_query is required", lf.ID)
	}
	if lf.UnlockCode == "" {
		return nil, fmt.Errorf("level %d: unlock_code is required", lf.ID)
	}
	if len(lf.Tables) == 0 {
		return nil, fmt.Errorf("level %d: at least one table is required", lf.ID)
	}

	tables := make([]models.Table, 0, len(lf.Tables))
	seen := make(map[string]bool, len(lf.Tables))

	for _, tf := range lf.Tables {
		if !identRe.MatchString(tf.Name) {
			return nil, fmt.Errorf("level %d: invalid table name %q", lf.ID, tf.Name)
		}
		if seen[tf.Name] {
			return nil, fmt.Errorf("level %d: duplicate table %q", lf.ID, tf.Name)
		}
		seen[tf.Name] = true

		if len(tf.Columns) == 0 {
			return nil, fmt.Errorf("level %d: table %q has no columns", lf.ID, tf.Name)
		}
		for _, col := range tf.Columns {
			if !identRe.MatchString(col) {
				return nil, fmt.Errorf("level %d: table %q: invalid column name %q", lf.ID, tf.Name, col)
			}
		}

		for i, row := range tf.Rows {
			for col := range row {
				if !containsColumn(tf.Columns, col) {
					return nil, fmt.Errorf("level %d: table %q row %d: unknown column %q", lf.ID, tf.Name, i, col)
				}
			}
		}

		tables = append(tables, models.Table{
			Name:    tf.Name,
			Columns: tf.Columns,
			Rows:    tf.Rows,
		})
	}

	return &models.Level{
		ID:                lf.ID,
		Banner:            lf.Level,
		Title:             lf.Title,
		StorySetup:        lf.StorySetup,
		GatekeeperMessage: lf.GatekeeperMessage,
		Hint:              lf.Hint,
		Tables:            tables,
		ReferenceQuery:    lf.ReferenceQuery,
		UnlockCode:        lf.UnlockCode,
	}, nil
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
