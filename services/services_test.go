package services

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

// setupTestDB opens an isolated in-memory database with the same error
// translation the real connection uses, and migrates every model the
// pipeline touches.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:pipeline_test_%d?mode=memory&cache=shared&_busy_timeout=5000", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Notification{},
		&courseModels.Course{},
		&courseModels.CourseContent{},
		&courseModels.ContentCompletion{},
		&courseModels.Enrollment{},
		&courseModels.CourseProgress{},
		&courseModels.Certificate{},
	); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Password: "hashed"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return &user
}

func createTestCourse(t *testing.T, db *gorm.DB, title, level string) *courseModels.Course {
	t.Helper()
	course := courseModels.Course{Title: title, Level: level, IsPublished: true, Status: "ACTIVE"}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("create test course: %v", err)
	}
	return &course
}

func enrollTestUser(t *testing.T, db *gorm.DB, userID, courseID uint) {
	t.Helper()
	enrollment := courseModels.Enrollment{UserID: userID, CourseID: courseID, Status: "ENROLLED"}
	if err := db.Create(&enrollment).Error; err != nil {
		t.Fatalf("enroll test user: %v", err)
	}
}

func completedProgress(userID, courseID uint) *courseModels.CourseProgress {
	now := time.Now()
	return &courseModels.CourseProgress{
		UserID:      userID,
		CourseID:    courseID,
		Percentage:  100,
		StartedAt:   now.Add(-time.Hour),
		CompletedAt: &now,
	}
}

// memoryDocStore keeps rendered documents in memory.
type memoryDocStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemoryDocStore() *memoryDocStore {
	return &memoryDocStore{docs: make(map[string][]byte)}
}

func (s *memoryDocStore) Write(filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[filename] = data
	return "/certificates/" + filename, nil
}

// failingDocStore always fails its write.
type failingDocStore struct{}

func (failingDocStore) Write(string, []byte) (string, error) {
	return "", fmt.Errorf("disk full")
}

type sentMail struct {
	To      string
	Subject string
}

// stubMailer records sent mail and can be told to fail.
type stubMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo string // fail only this recipient; empty with fail=true fails all
	fail   bool
}

func (m *stubMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail || (m.failTo != "" && m.failTo == to) {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject})
	return nil
}

func (m *stubMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// stubPublisher records published payloads and can be told to fail.
type stubPublisher struct {
	mu     sync.Mutex
	events map[uint][][]byte
	fail   bool
}

func newStubPublisher() *stubPublisher {
	return &stubPublisher{events: make(map[uint][][]byte)}
}

func (p *stubPublisher) Publish(userID uint, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("channel closed")
	}
	p.events[userID] = append(p.events[userID], payload)
	return nil
}

func (p *stubPublisher) published(userID uint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events[userID])
}
