package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const usersTable = "users"

// Uploader copies a backup file to remote object storage; *helpers.S3Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
}

// BackupService dumps every table to <dir>/<table>.json and restores from the same layout.
type BackupService struct {
	Users    *UserService
	Entities []*EntityService
	Logger   *logrus.Logger

	Uploader Uploader
	Prefix   string
}

func NewBackupService(users *UserService, entities []*EntityService, logger *logrus.Logger) *BackupService {
	return &BackupService{Users: users, Entities: entities, Logger: logger}
}

// Snapshot reads every table. Users come first and carry no password hashes.
func (s *BackupService) Snapshot(ctx context.Context) (map[string][]map[string]any, error) {
	out := map[string][]map[string]any{}
	users, err := s.Users.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot users: %w", err)
	}
	out[usersTable] = users
	for _, es := range s.Entities {
		recs, err := es.Repo.List(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", es.Schema().Table, err)
		}
		rows := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			rows = append(rows, map[string]any(r))
		}
		out[es.Schema().Table] = rows
	}
	return out, nil
}

// Backup writes the snapshot to dir and, when an uploader is set, copies each file to it.
func (s *BackupService) Backup(ctx context.Context, dir string) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	written := make([]string, 0, len(snap))
	for _, table := range s.tables() {
		b, err := json.MarshalIndent(snap[table], "", "  ")
		if err != nil {
			return written, fmt.Errorf("encode %s: %w", table, err)
		}
		file := filepath.Join(dir, table+".json")
		if err := os.WriteFile(file, b, 0o644); err != nil {
			return written, err
		}
		written = append(written, file)
		if s.Uploader != nil {
			key := path.Join(s.Prefix, table+".json")
			if err := s.Uploader.Upload(ctx, key, bytes.NewReader(b), "application/json"); err != nil {
				return written, fmt.Errorf("upload %s: %w", key, err)
			}
		}
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"table": table, "rows": len(snap[table])}).Info("table backed up")
		}
	}
	return written, nil
}

// Restore reads <dir>/<table>.json for every table, users first, and upserts the rows.
// Missing files are skipped.
func (s *BackupService) Restore(ctx context.Context, dir string) (map[string]BulkResult, error) {
	results := map[string]BulkResult{}
	for _, table := range s.tables() {
		rows, err := readRows(filepath.Join(dir, table+".json"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return results, fmt.Errorf("read %s: %w", table, err)
		}
		var res BulkResult
		if table == usersTable {
			res = s.Users.Restore(ctx, rows)
		} else {
			res = s.entity(table).Restore(ctx, rows)
		}
		results[table] = res
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"table":  table,
				"ok":     res.SuccessCount,
				"failed": res.ErrorCount,
			}).Info("table restored")
		}
	}
	return results, nil
}

func (s *BackupService) tables() []string {
	out := []string{usersTable}
	for _, es := range s.Entities {
		out = append(out, es.Schema().Table)
	}
	return out
}

func (s *BackupService) entity(table string) *EntityService {
	for _, es := range s.Entities {
		if es.Schema().Table == table {
			return es
		}
	}
	return nil
}

func readRows(file string) ([]map[string]any, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	// numbers stay json.Number so ids past 2^53 restore exactly
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
