package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel() // Enable parallel execution
	ownerID := uuid.New()

	task, err := NewTask(ownerID, "Buy groceries", "Milk, eggs, bread")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.OwnerID != ownerID {
		t.Errorf("Expected owner ID %s, got %s", ownerID, task.OwnerID)
	}

	if task.Title != "Buy groceries" {
		t.Errorf("Expected title %q, got %q", "Buy groceries", task.Title)
	}

	if task.IsCompleted {
		t.Error("Expected new task to be incomplete")
	}

	if task.Priority != PriorityMedium {
		t.Errorf("Expected default priority %q, got %q", PriorityMedium, task.Priority)
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	if task.UpdatedAt.IsZero() {
		t.Error("Expected non-zero UpdatedAt time")
	}

	// Test invalid ownerID
	_, err = NewTask(uuid.Nil, "Buy groceries", "")
	if err != ErrTaskOwnerIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskOwnerIDEmpty, err)
	}

	// Test empty title
	_, err = NewTask(ownerID, "", "")
	if err != ErrTaskTitleEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskTitleEmpty, err)
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Task {
		return &Task{
			ID:       uuid.New(),
			OwnerID:  uuid.New(),
			Title:    "Write report",
			Priority: PriorityLow,
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected valid task to pass, got %v", err)
	}

	task := valid()
	task.ID = uuid.Nil
	if err := task.Validate(); err != ErrTaskIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskIDEmpty, err)
	}

	task = valid()
	task.Title = strings.Repeat("a", MaxTitleLength+1)
	if err := task.Validate(); err != ErrTaskTitleTooLong {
		t.Errorf("Expected error %v, got %v", ErrTaskTitleTooLong, err)
	}

	task = valid()
	task.Title = strings.Repeat("a", MaxTitleLength)
	if err := task.Validate(); err != nil {
		t.Errorf("Expected title at the limit to pass, got %v", err)
	}

	task = valid()
	task.Description = strings.Repeat("b", MaxDescriptionLength+1)
	if err := task.Validate(); err != ErrTaskDescriptionTooLong {
		t.Errorf("Expected error %v, got %v", ErrTaskDescriptionTooLong, err)
	}

	task = valid()
	task.Priority = Priority("urgent")
	if err := task.Validate(); err != ErrTaskPriorityInvalid {
		t.Errorf("Expected error %v, got %v", ErrTaskPriorityInvalid, err)
	}
}

func TestPriorityIsValid(t *testing.T) {
	t.Parallel()

	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if !p.IsValid() {
			t.Errorf("Expected priority %q to be valid", p)
		}
	}

	for _, p := range []Priority{"", "urgent", "LOW", "Medium"} {
		if p.IsValid() {
			t.Errorf("Expected priority %q to be invalid", p)
		}
	}
}

func TestTaskCompleteIncomplete(t *testing.T) {
	t.Parallel()

	task, err := NewTask(uuid.New(), "Walk the dog", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	before := task.UpdatedAt
	time.Sleep(time.Millisecond)

	task.Complete()
	if !task.IsCompleted {
		t.Error("Expected task to be completed")
	}
	if !task.UpdatedAt.After(before) {
		t.Error("Expected Complete to advance UpdatedAt")
	}

	before = task.UpdatedAt
	time.Sleep(time.Millisecond)

	task.Incomplete()
	if task.IsCompleted {
		t.Error("Expected task to be incomplete")
	}
	if !task.UpdatedAt.After(before) {
		t.Error("Expected Incomplete to advance UpdatedAt")
	}
}

func TestTruncateTitle(t *testing.T) {
	t.Parallel()

	if got := TruncateTitle("short"); got != "short" {
		t.Errorf("Expected %q, got %q", "short", got)
	}

	long := strings.Repeat("x", MaxTitleLength+50)
	got := TruncateTitle(long)
	if len([]rune(got)) != MaxTitleLength {
		t.Errorf("Expected truncated length %d, got %d", MaxTitleLength, len([]rune(got)))
	}

	// Multi-byte runes must not be split
	multibyte := strings.Repeat("é", MaxTitleLength+10)
	got = TruncateTitle(multibyte)
	if len([]rune(got)) != MaxTitleLength {
		t.Errorf("Expected truncated rune length %d, got %d", MaxTitleLength, len([]rune(got)))
	}
	for _, r := range got {
		if r != 'é' {
			t.Errorf("Expected only é runes after truncation, got %q", r)
		}
	}
}
