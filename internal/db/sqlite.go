package db

import (
	"database/sql"
	"fmt"

	"github.com/RichardoC/dehost/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id INTEGER,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS deployments (
    id TEXT PRIMARY KEY,
    conversation_id INTEGER,
    content_id TEXT NOT NULL,
    view_url TEXT NOT NULL,
    size INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);`

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) SaveMessage(msg *models.Message) error {
	query := `
        INSERT INTO messages (conversation_id, role, content, created_at)
        VALUES (?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	return db.db.QueryRow(query, msg.ConvID, msg.Role, msg.Content).Scan(&msg.ID, &msg.CreatedAt)
}

func (db *Database) CreateConversation(title string) (*models.Conversation, error) {
	query := `
        INSERT INTO conversations (title, created_at)
        VALUES (?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	conv := &models.Conversation{Title: title}
	err := db.db.QueryRow(query, title).Scan(&conv.ID, &conv.CreatedAt)
	return conv, err
}

// GetConversationHistory returns at most limit messages, newest first.
func (db *Database) GetConversationHistory(conversationID int64, limit int) ([]models.Message, error) {
	query := `
        SELECT id, conversation_id, role, content, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY id DESC
        LIMIT ?`

	return db.queryMessages(query, conversationID, limit)
}

// GetMessages returns every message of a conversation in the order it was written.
func (db *Database) GetMessages(conversationID int64) ([]models.Message, error) {
	query := `
        SELECT id, conversation_id, role, content, created_at
        FROM messages
        WHERE conversation_id = ?
        ORDER BY id ASC`

	return db.queryMessages(query, conversationID)
}

func (db *Database) queryMessages(query string, args ...any) ([]models.Message, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return []models.Message{}, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(&msg.ID, &msg.ConvID, &msg.Role, &msg.Content, &msg.CreatedAt)
		if err != nil {
			return []models.Message{}, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (db *Database) GetConversations() ([]models.Conversation, error) {
	query := `
        SELECT id, title, created_at
        FROM conversations
        ORDER BY created_at DESC, id DESC`

	rows, err := db.db.Query(query)
	if err != nil {
		return []models.Conversation{}, err
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		var conv models.Conversation
		err := rows.Scan(&conv.ID, &conv.Title, &conv.CreatedAt)
		if err != nil {
			return []models.Conversation{}, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (db *Database) SaveDeployment(d *models.Deployment) error {
	var convID sql.NullInt64
	if d.ConvID != 0 {
		convID = sql.NullInt64{Int64: d.ConvID, Valid: true}
	}

	query := `
        INSERT INTO deployments (id, conversation_id, content_id, view_url, size, created_at)
        VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING created_at`

	return db.db.QueryRow(query, d.ID, convID, d.ContentID, d.ViewURL, d.Size).Scan(&d.CreatedAt)
}

// GetDeployments lists deployments newest first. A zero conversationID lists all of them.
func (db *Database) GetDeployments(conversationID int64, limit int) ([]models.Deployment, error) {
	query := `
        SELECT id, conversation_id, content_id, view_url, size, created_at
        FROM deployments
        WHERE (? = 0 OR conversation_id = ?)
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?`

	rows, err := db.db.Query(query, conversationID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	deployments := make([]models.Deployment, 0)
	for rows.Next() {
		var (
			d      models.Deployment
			convID sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &convID, &d.ContentID, &d.ViewURL, &d.Size, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		d.ConvID = convID.Int64
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

func (db *Database) DeleteConversation(id int64) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Delete messages
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return err
	}

	// Deployments outlive the conversation that produced them
	if _, err := tx.Exec("UPDATE deployments SET conversation_id = NULL WHERE conversation_id = ?", id); err != nil {
		return err
	}

	// Delete conversation
	if _, err := tx.Exec("DELETE FROM conversations WHERE id = ?", id); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *Database) UpdateConversationTitle(id int64, title string) error {
	_, err := db.db.Exec("UPDATE conversations SET title = ? WHERE id = ?", title, id)
	return err
}
