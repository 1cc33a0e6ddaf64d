package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/apperrors"
	"github.com/taskpilot/taskpilot/internal/models"
)

func TestCreateTicketMintsSequentialIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")

	first := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "First",
		Type:          "Task",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	require.Equal(t, "P1-0", first.TicketID)
	require.Equal(t, models.StatusNotStarted, first.Status)
	require.Equal(t, first.CreatedAt, first.ModifiedAt)
	require.Nil(t, first.Assignee)
	require.Nil(t, first.ParentTicket)
	require.Equal(t, 0, first.NextCommentID)

	second := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Second",
		Type:          "Bug",
		Priority:      "High",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	require.Equal(t, "P1-1", second.TicketID)

	project, err := env.Projects.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 2, project.NextTicketID)
}

func TestCreateTicketExplicitID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")

	ticket := env.mustCreateTicket(t, &CreateTicketRequest{
		TicketID:      "CUSTOM-7",
		Title:         "Custom",
		Type:          "Story",
		Priority:      "Low",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	require.Equal(t, "CUSTOM-7", ticket.TicketID)

	// The counter still advances
	project, err := env.Projects.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 1, project.NextTicketID)

	_, err = env.Tickets.Create(ctx, &CreateTicketRequest{
		TicketID:      "CUSTOM-7",
		Title:         "Dup",
		Type:          "Story",
		Priority:      "Low",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	require.True(t, apperrors.IsConflict(err))
}

func TestCreateTicketGhostReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")

	ghost := "ghost"
	_, err := env.Tickets.Create(ctx, &CreateTicketRequest{
		Title:         "Bad assignee",
		Type:          "Task",
		Priority:      "Normal",
		Assignee:      &ghost,
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	require.True(t, apperrors.IsValidation(err))

	_, err = env.Tickets.Create(ctx, &CreateTicketRequest{
		Title:         "Bad project",
		Type:          "Task",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "missing",
	})
	require.True(t, apperrors.IsValidation(err))

	missing := "P1-999"
	_, err = env.Tickets.Create(ctx, &CreateTicketRequest{
		Title:         "Bad parent",
		Type:          "Task",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "P1",
		ParentTicket:  &missing,
	})
	require.True(t, apperrors.IsValidation(err))

	// Failed attempts leave no tickets and no counter movement
	tickets, err := env.Tickets.List(ctx)
	require.NoError(t, err)
	require.Empty(t, tickets)
	project, err := env.Projects.Get(ctx, "P1")
	require.NoError(t, err)
	require.Equal(t, 0, project.NextTicketID)
}

func TestUpdateTicket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateUser(t, "bob", false)
	env.mustCreateProject(t, "P1", "alice")
	ticket := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Original",
		Type:          "Task",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})

	bob := "Bob"
	updated, err := env.Tickets.Update(ctx, ticket.TicketID, &UpdateTicketRequest{
		Title:         "Edited",
		Type:          "Bug",
		Priority:      "Critical",
		Status:        models.StatusInProgress,
		Assignee:      &bob,
		ModifiedBy:    "bob",
		ParentProject: "P1",
	})
	require.NoError(t, err)
	require.Equal(t, "Edited", updated.Title)
	require.Equal(t, "Bug", updated.Type)
	require.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.Assignee)
	require.Equal(t, "bob", *updated.Assignee)
	require.Equal(t, "bob", updated.ModifiedBy)
	require.Equal(t, "alice", updated.CreatedBy)

	_, err = env.Tickets.Update(ctx, "missing", &UpdateTicketRequest{
		Title:         "X",
		Type:          "Task",
		Priority:      "Low",
		Status:        models.StatusClosed,
		ModifiedBy:    "alice",
		ParentProject: "P1",
	})
	require.True(t, apperrors.IsNotFound(err))
}

func TestChangeTicketStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")
	ticket := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Bug",
		Type:          "Bug",
		Priority:      "High",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})

	updated, err := env.Tickets.ChangeStatus(ctx, ticket.TicketID, models.StatusClosed)
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, updated.Status)

	_, err = env.Tickets.ChangeStatus(ctx, "missing", models.StatusClosed)
	require.True(t, apperrors.IsNotFound(err))
}

func TestAssignAndUnassign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateUser(t, "bob", false)
	env.mustCreateProject(t, "P1", "alice")
	ticket := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Bug",
		Type:          "Bug",
		Priority:      "High",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})

	updated, err := env.Tickets.Assign(ctx, ticket.TicketID, "BOB")
	require.NoError(t, err)
	require.NotNil(t, updated.Assignee)
	require.Equal(t, "bob", *updated.Assignee)

	_, err = env.Tickets.Assign(ctx, ticket.TicketID, "ghost")
	require.True(t, apperrors.IsValidation(err))

	assigned, err := env.Tickets.ByAssignee(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	updated, err = env.Tickets.Unassign(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Nil(t, updated.Assignee)
}

func TestDeleteTicketCascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")

	parent := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Parent",
		Type:          "Epic",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	child := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Child",
		Type:          "Task",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "P1",
		ParentTicket:  &parent.TicketID,
	})
	comment, err := env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID:  parent.TicketID,
		Text:      "note",
		CreatedBy: "alice",
	})
	require.NoError(t, err)

	require.NoError(t, env.Tickets.Delete(ctx, parent.TicketID))

	_, err = env.Tickets.Get(ctx, parent.TicketID)
	require.True(t, apperrors.IsNotFound(err))
	_, err = env.Comments.Get(ctx, comment.CommentID)
	require.True(t, apperrors.IsNotFound(err))

	// The child survives with its parent link cleared
	orphan, err := env.Tickets.Get(ctx, child.TicketID)
	require.NoError(t, err)
	require.Nil(t, orphan.ParentTicket)
}

func TestTicketChildren(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")

	parent := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Epic",
		Type:          "Epic",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Story",
		Type:          "Story",
		Priority:      "Normal",
		CreatedBy:     "alice",
		ParentProject: "P1",
		ParentTicket:  &parent.TicketID,
	})

	children, err := env.Tickets.Children(ctx, parent.TicketID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, "Story", children[0].Title)

	children, err = env.Tickets.Children(ctx, children[0].TicketID)
	require.NoError(t, err)
	require.Empty(t, children)
}

func TestTicketIsOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateUser(t, "bob", false)
	env.mustCreateUser(t, "carol", false)
	env.mustCreateUser(t, "root", true)
	env.mustCreateProject(t, "P1", "alice")

	epic := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Epic",
		Type:          "Epic",
		Priority:      "Normal",
		CreatedBy:     "bob",
		ParentProject: "P1",
	})
	story := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Story",
		Type:          "Story",
		Priority:      "Normal",
		CreatedBy:     "carol",
		ParentProject: "P1",
		ParentTicket:  &epic.TicketID,
	})

	cases := []struct {
		name     string
		ticketID string
		username string
		want     bool
	}{
		{"creator", story.TicketID, "carol", true},
		{"ancestor creator", story.TicketID, "bob", true},
		{"project creator", story.TicketID, "alice", true},
		{"admin", story.TicketID, "root", true},
		{"child creator does not own parent", epic.TicketID, "carol", false},
		{"unknown user", story.TicketID, "ghost", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.Tickets.IsOwner(ctx, tc.ticketID, tc.username)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := env.Tickets.IsOwner(ctx, "missing", "alice")
	require.True(t, apperrors.IsNotFound(err))
}

func TestTicketSearchAndByProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")
	env.mustCreateProject(t, "P2", "alice")

	env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Bug one",
		Type:          "Bug",
		Priority:      "High",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Task two",
		Type:          "Task",
		Priority:      "Low",
		CreatedBy:     "alice",
		ParentProject: "P2",
	})

	kind := "Bug"
	tickets, err := env.Tickets.Search(ctx, &SearchTicketsRequest{Type: &kind})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	require.Equal(t, "Bug one", tickets[0].Title)

	tickets, err = env.Tickets.ByProject(ctx, "P2")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	require.Equal(t, "Task two", tickets[0].Title)

	tickets, err = env.Tickets.Search(ctx, &SearchTicketsRequest{})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
}

func TestTicketListingsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateProject(t, "P1", "alice")

	older := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Older",
		Type:          "Task",
		Priority:      "Low",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})
	newer := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Newer",
		Type:          "Task",
		Priority:      "Low",
		CreatedBy:     "alice",
		ParentProject: "P1",
	})

	// "25-12-2025" sorts after "02-01-2026" as a string but is the earlier
	// instant; string ordering would flip the result.
	require.NoError(t, env.Tickets.Store.Update(ctx, models.CollectionTickets, older.TicketID,
		map[string]any{"modified_at": "25-12-2025 10:00:00"}))
	require.NoError(t, env.Tickets.Store.Update(ctx, models.CollectionTickets, newer.TicketID,
		map[string]any{"modified_at": "02-01-2026 10:00:00"}))

	tickets, err := env.Tickets.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	require.Equal(t, "Newer", tickets[0].Title)
	require.Equal(t, "Older", tickets[1].Title)

	tickets, err = env.Tickets.ByProject(ctx, "P1")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	require.Equal(t, "Newer", tickets[0].Title)
	require.Equal(t, "Older", tickets[1].Title)
}
