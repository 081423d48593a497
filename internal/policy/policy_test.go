package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/domain"
)

func TestTaskPolicy(t *testing.T) {
	t.Parallel()

	owner := &domain.User{ID: uuid.New(), Roles: []domain.Role{domain.RoleUser}}
	admin := &domain.User{ID: uuid.New(), Roles: []domain.Role{domain.RoleUser, domain.RoleAdmin}}
	stranger := &domain.User{ID: uuid.New(), Roles: []domain.Role{domain.RoleUser}}

	task := &domain.Task{ID: uuid.New(), OwnerID: owner.ID}

	cases := []struct {
		name  string
		actor *domain.User
		want  bool
	}{
		{"owner", owner, true},
		{"admin", admin, true},
		{"stranger", stranger, false},
		{"nil actor", nil, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := CanView(tc.actor, task); got != tc.want {
				t.Errorf("CanView = %v, want %v", got, tc.want)
			}
			if got := CanUpdate(tc.actor, task); got != tc.want {
				t.Errorf("CanUpdate = %v, want %v", got, tc.want)
			}
			if got := CanDelete(tc.actor, task); got != tc.want {
				t.Errorf("CanDelete = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanCreate(t *testing.T) {
	t.Parallel()

	if !CanCreate(&domain.User{ID: uuid.New()}) {
		t.Error("Expected any authenticated user to be able to create tasks")
	}
	if CanCreate(nil) {
		t.Error("Expected nil actor to be denied")
	}
}

func TestPolicyNilTask(t *testing.T) {
	t.Parallel()

	actor := &domain.User{ID: uuid.New()}
	if CanView(actor, nil) || CanUpdate(actor, nil) || CanDelete(actor, nil) {
		t.Error("Expected nil task to be denied for every action")
	}
}
