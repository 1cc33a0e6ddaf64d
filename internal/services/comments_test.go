package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/apperrors"
	"github.com/taskpilot/taskpilot/internal/models"
)

func TestCreateCommentMintsSequentialIDs(t *testing.T) {
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

	first, err := env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID:  ticket.TicketID,
		Text:      "first",
		CreatedBy: "Alice",
	})
	require.NoError(t, err)
	require.Equal(t, ticket.TicketID+"-0", first.CommentID)
	require.Equal(t, "alice", first.CreatedBy)
	require.NotEmpty(t, first.CreatedAt)

	second, err := env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID:  ticket.TicketID,
		Text:      "second",
		CreatedBy: "alice",
	})
	require.NoError(t, err)
	require.Equal(t, ticket.TicketID+"-1", second.CommentID)

	got, err := env.Tickets.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Equal(t, 2, got.NextCommentID)
}

func TestCreateCommentGhostReferences(t *testing.T) {
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

	_, err := env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID:  "missing",
		Text:      "orphan",
		CreatedBy: "alice",
	})
	require.True(t, apperrors.IsValidation(err))

	_, err = env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID:  ticket.TicketID,
		Text:      "ghost author",
		CreatedBy: "ghost",
	})
	require.True(t, apperrors.IsValidation(err))

	comments, err := env.Comments.List(ctx)
	require.NoError(t, err)
	require.Empty(t, comments)
}

func TestCommentsByTicketOldestFirst(t *testing.T) {
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

	for _, text := range []string{"one", "two", "three"} {
		_, err := env.Comments.Create(ctx, &CreateCommentRequest{
			TicketID:  ticket.TicketID,
			Text:      text,
			CreatedBy: "alice",
		})
		require.NoError(t, err)
	}

	// Day-first stamps chosen so string comparison would order them
	// -0, -2, -1; only parsed-time comparison yields oldest first.
	stamps := map[string]string{
		ticket.TicketID + "-0": "02-01-2026 10:00:00",
		ticket.TicketID + "-1": "30-12-2025 10:00:00",
		ticket.TicketID + "-2": "25-12-2025 10:00:00",
	}
	for id, stamp := range stamps {
		require.NoError(t, env.Comments.Store.Update(ctx, models.CollectionComments, id,
			map[string]any{"created_at": stamp}))
	}

	comments, err := env.Comments.ByTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	ids := []string{comments[0].CommentID, comments[1].CommentID, comments[2].CommentID}
	require.Equal(t, []string{
		ticket.TicketID + "-2", ticket.TicketID + "-1", ticket.TicketID + "-0",
	}, ids)
}

func TestSearchComments(t *testing.T) {
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

	_, err := env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID: ticket.TicketID, Text: "from alice", CreatedBy: "alice",
	})
	require.NoError(t, err)
	_, err = env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID: ticket.TicketID, Text: "from bob", CreatedBy: "bob",
	})
	require.NoError(t, err)

	author := "bob"
	comments, err := env.Comments.Search(ctx, &SearchCommentsRequest{CreatedBy: &author})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "from bob", comments[0].Text)

	comments, err = env.Comments.Search(ctx, &SearchCommentsRequest{})
	require.NoError(t, err)
	require.Len(t, comments, 2)
}

func TestDeleteComment(t *testing.T) {
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
	comment, err := env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID: ticket.TicketID, Text: "gone soon", CreatedBy: "alice",
	})
	require.NoError(t, err)

	require.NoError(t, env.Comments.Delete(ctx, comment.CommentID))
	_, err = env.Comments.Get(ctx, comment.CommentID)
	require.True(t, apperrors.IsNotFound(err))
	require.True(t, apperrors.IsNotFound(env.Comments.Delete(ctx, comment.CommentID)))
}

func TestCommentIsOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mustCreateUser(t, "alice", false)
	env.mustCreateUser(t, "bob", false)
	env.mustCreateUser(t, "carol", false)
	env.mustCreateUser(t, "root", true)
	env.mustCreateProject(t, "P1", "alice")
	ticket := env.mustCreateTicket(t, &CreateTicketRequest{
		Title:         "Bug",
		Type:          "Bug",
		Priority:      "High",
		CreatedBy:     "bob",
		ParentProject: "P1",
	})
	comment, err := env.Comments.Create(ctx, &CreateCommentRequest{
		TicketID: ticket.TicketID, Text: "note", CreatedBy: "carol",
	})
	require.NoError(t, err)

	cases := []struct {
		name     string
		username string
		want     bool
	}{
		{"comment author", "carol", true},
		{"ticket creator", "bob", true},
		{"project creator", "alice", true},
		{"admin", "root", true},
		{"unknown user", "ghost", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.Comments.IsOwner(ctx, comment.CommentID, tc.username)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err = env.Comments.IsOwner(ctx, "missing", "alice")
	require.True(t, apperrors.IsNotFound(err))
}
