package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type Direction string

const (
	MigrateUp   Direction = "up"
	MigrateDown Direction = "down"
)

// MigrationFiles lists the *.up.sql or *.down.sql files of dir in execution order.
func MigrationFiles(dir string, direction Direction) ([]string, error) {
	if direction != MigrateUp && direction != MigrateDown {
		return nil, fmt.Errorf("unknown migration direction %q", direction)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migration directory: %w", err)
	}

	suffix := fmt.Sprintf(".%s.sql", direction)
	var names []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), suffix) {
			names = append(names, file.Name())
		}
	}

	sort.Strings(names)
	if direction == MigrateDown {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}

	return names, nil
}

func Migrate(ctx context.Context, q Querier, dir string, direction Direction, logger *zap.Logger) (int, error) {
	names, err := MigrationFiles(dir, direction)
	if err != nil {
		return 0, err
	}

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return 0, fmt.Errorf("read migration file %s: %w", name, err)
		}

		logger.Info("running migration", zap.String("file", name))
		if _, err := q.ExecContext(ctx, string(content)); err != nil {
			return 0, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return len(names), nil
}
