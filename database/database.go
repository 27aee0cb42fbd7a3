package database

import (
	"database/sql"
	"fmt"
	"strings"

	"miniplm/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

var DB *sql.DB
var dbType string // 데이터베이스 타입 저장

// Initialize 전역 데이터베이스 초기화
// t: "sqlite" 또는 "mysql"
// dsn: SQLite 파일 경로 또는 MySQL DSN
func Initialize(t, dsn string) error {
	db, err := Open(t, dsn)
	if err != nil {
		return err
	}
	DB = db
	dbType = normalizeType(t)

	logger.Info("Database initialized successfully (%s)", dbType)
	return nil
}

// Open opens a database, checks the connection and creates the schema.
func Open(t, dsn string) (*sql.DB, error) {
	t = normalizeType(t)
	if dsn == "" && t == "sqlite" {
		dsn = "./miniplm.db"
	}

	db, err := sql.Open(t, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 연결 테스트
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if t == "sqlite" {
		// 단일 writer
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	if err := createTables(db, t); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// Type 현재 전역 데이터베이스 타입
func Type() string {
	return dbType
}

func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" || t == "sqlite3" {
		return "sqlite"
	}
	return t
}

// createTables 테이블 생성
func createTables(db *sql.DB, t string) error {
	var statements []string

	if t == "mysql" {
		statements = []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id VARCHAR(64) PRIMARY KEY,
				username VARCHAR(100) NOT NULL UNIQUE,
				password VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL DEFAULT '',
				created_at VARCHAR(50) NOT NULL DEFAULT ''
			) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci`,
			`CREATE TABLE IF NOT EXISTS products (
				id VARCHAR(64) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				position INT NOT NULL DEFAULT 0,
				tree LONGTEXT NOT NULL,
				updated_at VARCHAR(50) NOT NULL DEFAULT '',
				INDEX idx_products_position (position)
			) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci`,
			`CREATE TABLE IF NOT EXISTS files (
				id VARCHAR(64) PRIMARY KEY,
				original_name VARCHAR(255) NOT NULL,
				stored_name VARCHAR(255) NOT NULL,
				mime_type VARCHAR(150) NOT NULL,
				file_size BIGINT NOT NULL,
				checksum VARCHAR(64) NOT NULL DEFAULT '',
				storage_path VARCHAR(500) NOT NULL,
				revision INT NOT NULL DEFAULT 1,
				status VARCHAR(20) NOT NULL DEFAULT 'In-Work',
				is_child TINYINT(1) NOT NULL DEFAULT 0,
				parent_id VARCHAR(64) NOT NULL DEFAULT '',
				parent_revision INT NOT NULL DEFAULT 0,
				uploaded_by VARCHAR(64) NOT NULL DEFAULT '',
				created_at VARCHAR(50) NOT NULL DEFAULT '',
				INDEX idx_files_name (original_name),
				INDEX idx_files_created (created_at)
			) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci`,
		}
	} else {
		statements = []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL,
				email TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS products (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				position INTEGER NOT NULL DEFAULT 0,
				tree TEXT NOT NULL,
				updated_at TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS files (
				id TEXT PRIMARY KEY,
				original_name TEXT NOT NULL,
				stored_name TEXT NOT NULL,
				mime_type TEXT NOT NULL,
				file_size INTEGER NOT NULL,
				checksum TEXT NOT NULL DEFAULT '',
				storage_path TEXT NOT NULL,
				revision INTEGER NOT NULL DEFAULT 1,
				status TEXT NOT NULL DEFAULT 'In-Work',
				is_child INTEGER NOT NULL DEFAULT 0,
				parent_id TEXT NOT NULL DEFAULT '',
				parent_revision INTEGER NOT NULL DEFAULT 0,
				uploaded_by TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_products_position ON products(position)`,
			`CREATE INDEX IF NOT EXISTS idx_files_name ON files(original_name)`,
			`CREATE INDEX IF NOT EXISTS idx_files_created ON files(created_at)`,
		}
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			// MySQL: 이미 존재하는 인덱스 오류 무시
			if t == "mysql" && strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}
	return nil
}

// Close 데이터베이스 연결 종료
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
