/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/nightlyone/lockfile"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"chainguard.dev/sonarfix/findings"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = ".sonarfix_cache.db"

// DefaultRetentionDays is the age after which records are purged.
const DefaultRetentionDays = 30

// Store records which findings have been fixed on which branch, keyed by a
// SHA-256 hash of the file content at fix time. Storage errors never escape
// as panics; lookups treat them as "not fixed" and writes return them for
// the caller to log.
type Store struct {
	db           *gorm.DB
	lock         lockfile.Lockfile
	now          func() time.Time
	normalizeEOL bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for fix timestamps and purges.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLineEndingNormalization hashes content with CRLF converted to LF, so a
// re-fetch that only changes line endings does not invalidate a record.
func WithLineEndingNormalization() Option {
	return func(s *Store) { s.normalizeEOL = true }
}

// Open opens (creating if needed) the store at path and takes an exclusive
// lock file next to it. The store uses a single connection, so one run is
// the only writer.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving store path: %w", err)
	}
	lock, err := lockfile.New(abs + ".lock")
	if err != nil {
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	if err := lock.TryLock(); err != nil {
		return nil, fmt.Errorf("fingerprint store %s is in use: %w", abs, err)
	}

	db, err := gorm.Open(sqlite.Open(abs), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("opening fingerprint store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("getting database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		_ = sqlDB.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("migrating fingerprint store: %w", err)
	}

	s := &Store{db: db, lock: lock, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	clog.FromContext(ctx).With("path", abs).Debug("Opened fingerprint store")
	return s, nil
}

// Close closes the database and releases the lock file.
func (s *Store) Close() error {
	var errs []error
	if sqlDB, err := s.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	} else {
		errs = append(errs, err)
	}
	errs = append(errs, s.lock.Unlock())
	return errors.Join(errs...)
}

// Hash returns the hex SHA-256 digest used to fingerprint content.
func (s *Store) Hash(content string) string {
	if s.normalizeEOL {
		content = strings.ReplaceAll(content, "\r\n", "\n")
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (s *Store) find(ctx context.Context, issueKey, branch string) (*Record, error) {
	var rec Record
	res := s.db.WithContext(ctx).
		Where("issue_key = ? AND branch = ?", issueKey, branch).
		Limit(1).
		Find(&rec)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &rec, nil
}

// IsFixed reports whether a record exists for the issue on the branch,
// trusting the stored record without looking at file content.
func (s *Store) IsFixed(ctx context.Context, issueKey, branch string) bool {
	rec, err := s.find(ctx, issueKey, branch)
	if err != nil {
		clog.FromContext(ctx).With("issue", issueKey, "branch", branch).Warnf("Fingerprint lookup failed: %v", err)
		return false
	}
	return rec != nil
}

// IsStillFixed reports whether the issue is recorded as fixed and content
// still hashes to the recorded value. A mismatched record is stale and is
// deleted, so the issue will be processed again.
func (s *Store) IsStillFixed(ctx context.Context, issueKey, branch, content string) bool {
	log := clog.FromContext(ctx).With("issue", issueKey, "branch", branch)
	rec, err := s.find(ctx, issueKey, branch)
	if err != nil {
		log.Warnf("Fingerprint lookup failed: %v", err)
		return false
	}
	if rec == nil {
		return false
	}
	if rec.FileHash == s.Hash(content) {
		return true
	}

	log.With("path", rec.FilePath).Info("File changed since fix was recorded, dropping stale fingerprint")
	if err := s.db.WithContext(ctx).
		Where("issue_key = ? AND branch = ?", issueKey, branch).
		Delete(&Record{}).Error; err != nil {
		log.Warnf("Deleting stale fingerprint failed: %v", err)
	}
	return false
}

// MarkFixed records the finding as fixed on branch, replacing any earlier
// record for the same (issue key, branch).
func (s *Store) MarkFixed(ctx context.Context, f findings.Finding, branch, content, commitID string) error {
	rec := Record{
		IssueKey: f.Key,
		Branch:   branch,
		FilePath: f.Path,
		Rule:     f.Rule,
		Message:  f.Message,
		CommitID: commitID,
		FixedAt:  s.now().UTC(),
		FileHash: s.Hash(content),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "issue_key"}, {Name: "branch"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_path", "rule", "message", "commit_id", "fixed_at", "file_hash"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("recording fix for %s on %s: %w", f.Key, branch, err)
	}
	return nil
}

// FilterUnfixed returns the findings with no record on branch, preserving
// order, and the number skipped as already fixed.
func (s *Store) FilterUnfixed(ctx context.Context, fs []findings.Finding, branch string) ([]findings.Finding, int) {
	unfixed := make([]findings.Finding, 0, len(fs))
	for _, f := range fs {
		if s.IsFixed(ctx, f.Key, branch) {
			continue
		}
		unfixed = append(unfixed, f)
	}
	skipped := len(fs) - len(unfixed)
	if skipped > 0 {
		clog.FromContext(ctx).With("branch", branch).Infof("Skipping %d already fixed findings", skipped)
	}
	return unfixed, skipped
}

// PurgeOlderThan deletes records fixed more than days ago and returns how
// many were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	res := s.db.WithContext(ctx).Where("fixed_at < ?", cutoff).Delete(&Record{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging fingerprints: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Records returns the records of a branch, most recent fix first.
func (s *Store) Records(ctx context.Context, branch string) ([]Record, error) {
	var recs []Record
	if err := s.db.WithContext(ctx).
		Where("branch = ?", branch).
		Order("fixed_at desc").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing fingerprints: %w", err)
	}
	return recs, nil
}

// BranchStatistics summarizes the records of a branch.
func (s *Store) BranchStatistics(ctx context.Context, branch string) (Stats, error) {
	var st Stats
	scope := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&Record{}).Where("branch = ?", branch)
	}
	if err := scope().Count(&st.TotalFixed).Error; err != nil {
		return st, fmt.Errorf("counting fixes: %w", err)
	}
	if st.TotalFixed == 0 {
		return st, nil
	}
	if err := scope().Distinct("file_path").Count(&st.DistinctFiles).Error; err != nil {
		return st, fmt.Errorf("counting files: %w", err)
	}
	if err := scope().Distinct("rule").Count(&st.DistinctRules).Error; err != nil {
		return st, fmt.Errorf("counting rules: %w", err)
	}

	var first, last Record
	if err := scope().Order("fixed_at asc").Limit(1).Find(&first).Error; err != nil {
		return st, fmt.Errorf("finding first fix: %w", err)
	}
	if err := scope().Order("fixed_at desc").Limit(1).Find(&last).Error; err != nil {
		return st, fmt.Errorf("finding last fix: %w", err)
	}
	st.FirstFix, st.LastFix = first.FixedAt, last.FixedAt
	return st, nil
}
