package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/studyorbit/squadsync-backend/internal/models"
	"gorm.io/gorm"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestProfile creates a test profile with default values
func (h *TestHelper) CreateTestProfile(id uint, username string) *models.Profile {
	if id == 0 {
		id = 1
	}
	if username == "" {
		username = "testprofile"
	}

	now := time.Now()
	return &models.Profile{
		ID:           id,
		Username:     username,
		DisplayName:  "Test Profile",
		Role:         "user",
		LastActiveAt: &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateTestSquad creates a test squad with default values
func (h *TestHelper) CreateTestSquad(id, ownerID uint, name string) *models.Squad {
	if id == 0 {
		id = 1
	}
	if ownerID == 0 {
		ownerID = 1
	}
	if name == "" {
		name = "Test Squad"
	}

	return &models.Squad{
		ID:        id,
		Name:      name,
		ShareCode: "TESTCODE",
		OwnerID:   ownerID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CreateTestChallenge creates an active challenge started at the given time
func (h *TestHelper) CreateTestChallenge(id, squadID, examID uint, createdAt time.Time) *models.Challenge {
	if id == 0 {
		id = 1
	}
	if squadID == 0 {
		squadID = 1
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &models.Challenge{
		ID:        id,
		SquadID:   squadID,
		ExamID:    examID,
		CreatorID: 1,
		Status:    models.ChallengeActive,
		ExpiresAt: createdAt.Add(time.Hour),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("DATABASE_URL", "")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("DATABASE_URL")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// AssertNotNil checks if a value is not nil
func (h *TestHelper) AssertNotNil(value interface{}, testName string) {
	if value == nil {
		h.t.Errorf("%s: expected non-nil value", testName)
	}
}

// GetRecordNotFoundError returns the not-found error repositories surface
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
