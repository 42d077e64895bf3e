package models

import "time"

// File is the slice of the file registry the share gate needs: identity,
// descriptor fields for responses, and the object-store key behind
// retrieval handles.
type File struct {
	ID         string    `db:"id"`
	FolderID   *string   `db:"folder_id"`
	Name       string    `db:"name"`
	MimeType   string    `db:"mime_type"`
	Size       int64     `db:"size"`
	StorageKey string    `db:"storage_key"`
	IsTrashed  bool      `db:"is_trashed"`
	CreatedAt  time.Time `db:"created_at"`
}

// Folder is the minimal folder record share resolution needs.
type Folder struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
