// Package migrations embeds the UES schema migrations and runs them with
// golang-migrate. Embedding keeps deployment zero-config: the schema ships
// inside every binary that needs it.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

//go:embed *.sql
var embedded embed.FS

// Migration filename standard: 001_name.up.sql / 001_name.down.sql.
var filenamePattern = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// Validation errors.
var (
	// ErrNoMigrations is returned when the embedded filesystem holds no
	// migration files.
	ErrNoMigrations = errors.New("no embedded migration files found")

	// ErrInvalidFilename is returned for files that break the naming standard.
	ErrInvalidFilename = errors.New("invalid migration filename")

	// ErrUnpairedMigration is returned when an up migration lacks its down
	// counterpart or vice versa.
	ErrUnpairedMigration = errors.New("unpaired migration")

	// ErrSequenceGap is returned when migration sequence numbers skip a value
	// or do not start at 001.
	ErrSequenceGap = errors.New("migration sequence gap")
)

// migrationInfo is a parsed migration filename.
type migrationInfo struct {
	sequence  int
	name      string
	direction string
}

// FS returns the embedded migration filesystem consumed by the iofs source
// driver.
func FS() fs.FS {
	return embedded
}

// List returns the embedded migration filenames that conform to the naming
// standard, sorted lexicographically.
func List() ([]string, error) {
	return listFrom(embedded)
}

// Validate checks the embedded migrations: naming, up/down pairing and a
// gapless sequence starting at 001. Runners call it before any
// state-changing operation.
func Validate() error {
	return validateFrom(embedded)
}

func listFrom(filesystem fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(filesystem, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	var files []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if filepath.Ext(name) == ".sql" && filenamePattern.MatchString(name) {
			files = append(files, name)
		}
	}

	sort.Strings(files)

	return files, nil
}

func validateFrom(filesystem fs.FS) error {
	files, err := listFrom(filesystem)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoMigrations
	}

	// direction sets keyed by "NNN_name"
	pairs := make(map[string]map[string]bool)

	sequences := make(map[int]bool)

	for _, file := range files {
		info, err := parseFilename(file)
		if err != nil {
			return err
		}

		key := fmt.Sprintf("%03d_%s", info.sequence, info.name)
		if pairs[key] == nil {
			pairs[key] = make(map[string]bool)
		}

		pairs[key][info.direction] = true
		sequences[info.sequence] = true
	}

	for key, directions := range pairs {
		if !directions["up"] {
			return fmt.Errorf("%w: missing up migration for %s", ErrUnpairedMigration, key)
		}

		if !directions["down"] {
			return fmt.Errorf("%w: missing down migration for %s", ErrUnpairedMigration, key)
		}
	}

	ordered := make([]int, 0, len(sequences))
	for seq := range sequences {
		ordered = append(ordered, seq)
	}

	sort.Ints(ordered)

	if ordered[0] != 1 {
		return fmt.Errorf("%w: sequence starts at %03d, expected 001", ErrSequenceGap, ordered[0])
	}

	for i := 1; i < len(ordered); i++ {
		if ordered[i] != ordered[i-1]+1 {
			return fmt.Errorf("%w: expected %03d, found %03d", ErrSequenceGap, ordered[i-1]+1, ordered[i])
		}
	}

	return nil
}

func parseFilename(filename string) (migrationInfo, error) {
	matches := filenamePattern.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return migrationInfo{}, fmt.Errorf(
			"%w: %s (expected 001_name.up.sql or 001_name.down.sql)",
			ErrInvalidFilename, filename,
		)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return migrationInfo{}, fmt.Errorf("%w: %s: %w", ErrInvalidFilename, filename, err)
	}

	return migrationInfo{sequence: sequence, name: matches[2], direction: matches[3]}, nil
}
