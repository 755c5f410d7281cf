package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"karsaazai/pkg/domain"
)

const migrateLockID int64 = 52415241

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so multiple replicas can start concurrently.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &ThreadModel{}, &MessageModel{}, &BookingModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// GetUserByID returns a user profile by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users ordered by created_at.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// MergeUserVerification sets verification[key] on a user profile, keeping the
// other verification entries intact. Read-merge-write; concurrent merges to
// the same profile can lose one writer, which callers treat as best-effort.
func (s *GormStore) MergeUserVerification(id, key string, doc any) error {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return fmt.Errorf("load user %s: %w", id, err)
	}
	verification := map[string]any{}
	if len(model.Verification) > 0 {
		if err := json.Unmarshal(model.Verification, &verification); err != nil {
			verification = map[string]any{}
		}
	}
	verification[key] = doc
	encoded, err := json.Marshal(verification)
	if err != nil {
		return fmt.Errorf("encode verification: %w", err)
	}
	return s.db.Model(&UserModel{}).Where("id = ?", id).Updates(map[string]any{
		"verification": datatypes.JSON(encoded),
		"updated_at":   time.Now().UTC(),
	}).Error
}

// UpsertThread creates or refreshes a thread summary with merge semantics:
// created_at is set only on first write.
func (s *GormStore) UpsertThread(t domain.Thread) error {
	model := threadToModel(t)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_message", "language", "updated_at"}),
	}).Create(&model).Error
}

// GetThread returns one thread by ID.
func (s *GormStore) GetThread(id string) (domain.Thread, bool, error) {
	var model ThreadModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Thread{}, false, nil
		}
		return domain.Thread{}, false, err
	}
	return threadFromModel(model), true, nil
}

// ListThreadsByUser returns the latest threads of a user.
func (s *GormStore) ListThreadsByUser(userID string, limit int) ([]domain.Thread, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []ThreadModel
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Thread, 0, len(models))
	for _, m := range models {
		res = append(res, threadFromModel(m))
	}
	return res, nil
}

// AppendMessage records one message in a thread's log.
func (s *GormStore) AppendMessage(msg domain.Message) error {
	model := messageToModel(msg)
	return s.db.Create(&model).Error
}

// ListMessages returns a thread's messages in chronological order.
func (s *GormStore) ListMessages(threadID string, limit int) ([]domain.Message, error) {
	query := s.db.Where("thread_id = ?", threadID).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []MessageModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Message, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

// ListBookings returns the full bookings collection ordered by created_at.
func (s *GormStore) ListBookings() ([]domain.Booking, error) {
	var models []BookingModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Booking, 0, len(models))
	for _, m := range models {
		res = append(res, bookingFromModel(m))
	}
	return res, nil
}

// ListBookingsByUser returns the latest bookings where the user is customer
// or provider.
func (s *GormStore) ListBookingsByUser(userID string, limit int) ([]domain.Booking, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []BookingModel
	if err := s.db.Where("customer_id = ? OR provider_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Booking, 0, len(models))
	for _, m := range models {
		res = append(res, bookingFromModel(m))
	}
	return res, nil
}

func userFromModel(m UserModel) domain.User {
	u := domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      domain.UserRole(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if len(m.Verification) > 0 {
		verification := map[string]any{}
		if err := json.Unmarshal(m.Verification, &verification); err == nil {
			u.Verification = verification
		}
	}
	return u
}

func threadToModel(t domain.Thread) ThreadModel {
	return ThreadModel{
		ID:          t.ID,
		UserID:      t.UserID,
		LastMessage: t.LastMessage,
		Language:    t.Language,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func threadFromModel(m ThreadModel) domain.Thread {
	return domain.Thread{
		ID:          m.ID,
		UserID:      m.UserID,
		LastMessage: m.LastMessage,
		Language:    m.Language,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:        msg.ID,
		ThreadID:  msg.ThreadID,
		Sender:    msg.Sender,
		Text:      msg.Text,
		Language:  msg.Language,
		CreatedAt: msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		Sender:    m.Sender,
		Text:      m.Text,
		Language:  m.Language,
		CreatedAt: m.CreatedAt,
	}
}

func bookingFromModel(m BookingModel) domain.Booking {
	b := domain.Booking{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		ProviderID: m.ProviderID,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
	}
	if len(m.Price) > 0 {
		var price any
		if err := json.Unmarshal(m.Price, &price); err == nil {
			b.Price = price
		}
	}
	return b
}
