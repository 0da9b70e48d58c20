/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fingerprint

import "time"

// Record is a fixed finding persisted for one branch. At most one record
// exists per (IssueKey, Branch).
type Record struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	IssueKey string    `gorm:"column:issue_key;not null;uniqueIndex:idx_issue_branch,priority:1"`
	Branch   string    `gorm:"column:branch;not null;uniqueIndex:idx_issue_branch,priority:2;index:idx_file_branch,priority:2"`
	FilePath string    `gorm:"column:file_path;not null;index:idx_file_branch,priority:1"`
	Rule     string    `gorm:"column:rule"`
	Message  string    `gorm:"column:message"`
	CommitID string    `gorm:"column:commit_id"`
	FixedAt  time.Time `gorm:"column:fixed_at;not null;index"`
	FileHash string    `gorm:"column:file_hash;not null"`
}

// TableName specifies the table name for Record.
func (Record) TableName() string {
	return "fixed_issues"
}

// Stats summarizes the records of one branch.
type Stats struct {
	TotalFixed    int64
	DistinctFiles int64
	DistinctRules int64
	// FirstFix and LastFix are zero when the branch has no records.
	FirstFix time.Time
	LastFix  time.Time
}
