// Package db archives search sessions into SQLite. The archive is write-only
// from the application's point of view.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	apperrors "github.com/nijaru/yt-search/errors"
	"github.com/nijaru/yt-search/models"
	"github.com/sirupsen/logrus"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    query TEXT NOT NULL,
    estimated_results INTEGER NOT NULL DEFAULT 0,
    pages INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS videos (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    duration TEXT NOT NULL,
    channel TEXT NOT NULL,
    channel_url TEXT NOT NULL,
    thumbnail_url TEXT NOT NULL,
    channel_thumbnail_url TEXT NOT NULL,
    uploaded_on TEXT NOT NULL,
    view_count TEXT NOT NULL,
    first_seen DATETIME NOT NULL,
    last_seen DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS session_videos (
    session_id TEXT NOT NULL REFERENCES sessions(id),
    video_id TEXT NOT NULL REFERENCES videos(id),
    position INTEGER NOT NULL,
    PRIMARY KEY (session_id, video_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_query ON sessions(query);
CREATE INDEX IF NOT EXISTS idx_session_videos_video ON session_videos(video_id);
`

const (
	upsertSessionQuery = `
        INSERT INTO sessions (id, query, estimated_results, pages, created_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            estimated_results = excluded.estimated_results,
            pages = excluded.pages
    `

	upsertVideoQuery = `
        INSERT INTO videos (
            id, url, title, duration, channel, channel_url, thumbnail_url,
            channel_thumbnail_url, uploaded_on, view_count, first_seen, last_seen
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            duration = excluded.duration,
            channel = excluded.channel,
            channel_url = excluded.channel_url,
            thumbnail_url = excluded.thumbnail_url,
            channel_thumbnail_url = excluded.channel_thumbnail_url,
            uploaded_on = excluded.uploaded_on,
            view_count = excluded.view_count,
            last_seen = excluded.last_seen
    `

	linkVideoQuery = `
        INSERT INTO session_videos (session_id, video_id, position)
        VALUES (?, ?, ?)
        ON CONFLICT(session_id, video_id) DO UPDATE SET position = excluded.position
    `
)

type Archive struct {
	db *sql.DB
}

func Open(dbPath string) (*Archive, error) {
	const op = "db.Open"
	logrus.WithField("path", dbPath).Info("Initializing archive database")

	if err := os.MkdirAll(filepath.Dir(dbPath), os.ModePerm); err != nil {
		return nil, apperrors.Storage(op, err, "failed to create database directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, apperrors.Storage(op, err, "failed to open database")
	}

	// One long-lived connection keeps the pragmas in effect and serialises
	// writers from concurrent HTTP sessions.
	db.SetMaxOpenConns(1)

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := execSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func configurePragmas(db *sql.DB) error {
	const op = "db.configurePragmas"

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return apperrors.Storage(op, err, fmt.Sprintf("failed to set pragma: %s", pragma))
		}
	}
	return nil
}

func execSchema(db *sql.DB) error {
	const op = "db.execSchema"

	tx, err := db.Begin()
	if err != nil {
		return apperrors.Storage(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return apperrors.Storage(op, err, fmt.Sprintf("failed to execute schema statement: %s", stmt))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage(op, err, "failed to commit schema transaction")
	}
	return nil
}

// SaveSession records the session and upserts its videos in one transaction.
// Saving the same session twice leaves the archive unchanged apart from
// last_seen timestamps.
func (a *Archive) SaveSession(ctx context.Context, s models.Session, videos []models.Video) error {
	const op = "db.SaveSession"

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Storage(op, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, upsertSessionQuery, s.ID, s.Query, s.Estimated, s.Pages, now); err != nil {
		return apperrors.Storage(op, err, "failed to save session")
	}

	videoStmt, err := tx.PrepareContext(ctx, upsertVideoQuery)
	if err != nil {
		return apperrors.Storage(op, err, "failed to prepare video statement")
	}
	defer videoStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, linkVideoQuery)
	if err != nil {
		return apperrors.Storage(op, err, "failed to prepare link statement")
	}
	defer linkStmt.Close()

	for i, v := range videos {
		if _, err := videoStmt.ExecContext(ctx,
			v.ID, v.URL, v.Title, v.Duration, v.Channel, v.ChannelURL, v.ThumbnailURL,
			v.ChannelThumbnailURL, v.UploadedOn, v.ViewCount, now, now,
		); err != nil {
			return apperrors.Storage(op, err, fmt.Sprintf("failed to save video %s", v.ID))
		}
		if _, err := linkStmt.ExecContext(ctx, s.ID, v.ID, i+1); err != nil {
			return apperrors.Storage(op, err, fmt.Sprintf("failed to link video %s", v.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage(op, err, "failed to commit transaction")
	}

	logrus.WithFields(logrus.Fields{
		"session": s.ID,
		"videos":  len(videos),
	}).Info("Archived search session")
	return nil
}
