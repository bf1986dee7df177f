package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProjectModel represents a tracked repository in the database.
type ProjectModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name          string    `gorm:"column:name;index;size:255"`
	RemoteURL     string    `gorm:"column:remote_url;uniqueIndex;size:1024"`
	AuthToken     string    `gorm:"column:auth_token;size:512"`
	DefaultBranch string    `gorm:"column:default_branch;size:255"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (ProjectModel) TableName() string {
	return "projects"
}

// CommitModel represents an ingested commit in the database.
type CommitModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProjectID    int64     `gorm:"column:project_id;uniqueIndex:idx_commits_project_sha"`
	SHA          string    `gorm:"column:sha;uniqueIndex:idx_commits_project_sha;size:64"`
	Author       string    `gorm:"column:author;size:255"`
	AuthorEmail  string    `gorm:"column:author_email;size:255"`
	Message      string    `gorm:"column:message;type:text"`
	Timestamp    time.Time `gorm:"column:timestamp;index"`
	Summary      string    `gorm:"column:summary;type:text"`
	UsedFallback bool      `gorm:"column:used_fallback;default:false"`
	Status       string    `gorm:"column:status;index;size:32"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (CommitModel) TableName() string {
	return "commits"
}

// ChunkModel represents an embedded file chunk in the database.
type ChunkModel struct {
	ID          int64       `gorm:"column:id;primaryKey;autoIncrement"`
	ProjectID   int64       `gorm:"column:project_id;uniqueIndex:idx_chunks_project_path_index"`
	Path        string      `gorm:"column:path;uniqueIndex:idx_chunks_project_path_index;size:1024"`
	ChunkIndex  int         `gorm:"column:chunk_index;uniqueIndex:idx_chunks_project_path_index"`
	Content     string      `gorm:"column:content;type:text"`
	Embedding   FloatVector `gorm:"column:embedding;type:json"`
	ContentHash string      `gorm:"column:content_hash;index;size:64"`
	CreatedAt   time.Time   `gorm:"column:created_at"`
	UpdatedAt   time.Time   `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (ChunkModel) TableName() string {
	return "file_chunks"
}

// FloatVector stores an embedding vector as a JSON column, portable across
// SQLite and PostgreSQL.
type FloatVector []float32

// Scan implements sql.Scanner for reading JSON from the database.
func (f *FloatVector) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FloatVector", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON to the database.
func (f FloatVector) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}
