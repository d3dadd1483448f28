package chat

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tutor-backend/internal/database"
)

const DefaultTitle = "New Chat"

// WelcomeMessage is seeded as the first assistant message of every new chat.
const WelcomeMessage = "Hi, I'm Llama Tutor, a personalized learning assistant. " +
	"Feel free to ask me questions about homework, lecture notes, or upcoming tests!"

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

// Store is the durable record of chats and their ordered messages.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListChats returns all chats, most recently updated first.
func (s *Store) ListChats() ([]database.Chat, error) {
	var chats []database.Chat
	if err := s.db.Order("updated_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return chats, nil
}

// GetChat looks up a single chat by id.
func (s *Store) GetChat(chatID uuid.UUID) (database.Chat, error) {
	var chat database.Chat
	err := s.db.First(&chat, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chat, fmt.Errorf("%w: chat %v does not exist", ErrIntegrity, chatID)
	} else if err != nil {
		return chat, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return chat, nil
}

// CreateChat inserts a new chat and its seeded assistant welcome message in a
// single transaction, so the chat is never observable without its first
// message.
func (s *Store) CreateChat(title string) (database.Chat, error) {
	if title == "" {
		title = DefaultTitle
	}

	now := time.Now().UTC()
	chat := database.Chat{
		ChatID:    uuid.New(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbMutex.Lock()
	defer dbMutex.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		seed := database.Message{
			ChatID:    chat.ChatID,
			Role:      database.RoleAssistant,
			Content:   WelcomeMessage,
			CreatedAt: now,
		}
		return tx.Create(&seed).Error
	})
	if err != nil {
		return database.Chat{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return chat, nil
}

// ListMessages returns the messages of a chat in ascending id order. An
// unknown chat id yields an empty slice; no existence check happens here.
// A limit of 0 returns the full history.
func (s *Store) ListMessages(chatID uuid.UUID, limit int) ([]database.Message, error) {
	query := s.db.
		Where("chat_id = ?", chatID).
		Order("message_id ASC, created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []database.Message
	err := query.Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return messages, nil
}

// AppendMessage inserts a message and advances the owning chat's updated_at
// in the same transaction. Invalid roles fail with ErrValidation; a chat id
// that references no chat fails with ErrIntegrity, and nothing is written.
func (s *Store) AppendMessage(chatID uuid.UUID, role, content string) (database.Message, error) {
	if !database.ValidRole(role) {
		return database.Message{}, fmt.Errorf("%w: invalid role %q", ErrValidation, role)
	}

	dbMutex.Lock()
	defer dbMutex.Unlock()

	msg := database.Message{
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var chat database.Chat
		if err := tx.First(&chat, "chat_id = ?", chatID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: chat %v does not exist", ErrIntegrity, chatID)
			}
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		if err := tx.Create(&msg).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		err := tx.Model(&database.Chat{}).
			Where("chat_id = ?", chatID).
			UpdateColumn("updated_at", time.Now().UTC()).Error
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		return nil
	})
	if err != nil {
		return database.Message{}, err
	}

	return msg, nil
}

// DeleteChat removes a chat and all of its messages in one transaction.
func (s *Store) DeleteChat(chatID uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&database.Message{}, "chat_id = ?", chatID).Error; err != nil {
			return err
		}
		return tx.Delete(&database.Chat{}, "chat_id = ?", chatID).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
