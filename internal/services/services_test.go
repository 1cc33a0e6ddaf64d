package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/internal/models"
	"github.com/taskpilot/taskpilot/internal/store"
)

// testEnv wires every entity service over one in-memory document store.
type testEnv struct {
	Users    *UserService
	Projects *ProjectService
	Tickets  *TicketService
	Comments *CommentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&store.Document{}))

	documents := store.New(db)
	log := slog.New(slog.DiscardHandler)

	return &testEnv{
		Users: &UserService{
			Store:  documents,
			Hasher: NewPasswordHasher(bcrypt.MinCost),
			Log:    log,
		},
		Projects: &ProjectService{Store: documents, Log: log},
		Tickets:  &TicketService{Store: documents, Log: log},
		Comments: &CommentService{Store: documents, Log: log},
	}
}

func (e *testEnv) mustCreateUser(t *testing.T, username string, admin bool) {
	t.Helper()
	_, err := e.Users.Create(context.Background(), &CreateUserRequest{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test User",
		Password: "secret",
		IsAdmin:  admin,
	})
	require.NoError(t, err)
}

func (e *testEnv) mustCreateProject(t *testing.T, id, createdBy string, members ...string) {
	t.Helper()
	_, err := e.Projects.Create(context.Background(), &CreateProjectRequest{
		ProjectID: id,
		Title:     "Project " + id,
		CreatedBy: createdBy,
		Members:   members,
	})
	require.NoError(t, err)
}

func (e *testEnv) mustCreateTicket(t *testing.T, req *CreateTicketRequest) *models.Ticket {
	t.Helper()
	ticket, err := e.Tickets.Create(context.Background(), req)
	require.NoError(t, err)
	return ticket
}
