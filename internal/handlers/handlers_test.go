package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/taskpilot/taskpilot/internal/handlers"
	"github.com/taskpilot/taskpilot/internal/services"
	"github.com/taskpilot/taskpilot/internal/store"
)

// setupApp builds a Fiber app with the full route table over an in-memory
// SQLite database
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&store.Document{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	documents := store.New(db)
	log := slog.New(slog.DiscardHandler)

	userService := &services.UserService{
		Store:  documents,
		Hasher: services.NewPasswordHasher(bcrypt.MinCost),
		Log:    log,
	}
	projectService := &services.ProjectService{Store: documents, Log: log}
	ticketService := &services.TicketService{Store: documents, Log: log}
	commentService := &services.CommentService{Store: documents, Log: log}

	chatService := &services.ChatService{
		BaseURL: "http://127.0.0.1:1",
		Client:  http.DefaultClient,
		Log:     log,
	}

	h := &handlers.Handlers{
		Users:    &handlers.UserHandler{Users: userService},
		Projects: &handlers.ProjectHandler{Projects: projectService, Tickets: ticketService},
		Tickets:  &handlers.TicketHandler{Tickets: ticketService, Comments: commentService},
		Comments: &handlers.CommentHandler{Comments: commentService},
		Chat:     &handlers.ChatHandler{Chat: chatService},
	}

	app := fiber.New()
	h.Register(app.Group("/api"))
	return app
}

// request executes a JSON request against the app and decodes the envelope
func request(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	defer resp.Body.Close()

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return resp.StatusCode, envelope
}

func createUser(t *testing.T, app *fiber.App, username string) {
	t.Helper()
	status, _ := request(t, app, "POST", "/api/users", map[string]any{
		"username":  username,
		"email":     username + "@example.com",
		"full_name": "Test User",
		"password":  "secret",
	})
	if status != 200 {
		t.Fatalf("Failed to create user %s: status %d", username, status)
	}
}

func TestUserLifecycle(t *testing.T) {
	app := setupApp(t)

	// Create
	status, body := request(t, app, "POST", "/api/users", map[string]any{
		"username":  "Alice",
		"email":     "alice@example.com",
		"full_name": "Alice A",
		"password":  "secret",
	})
	if status != 200 {
		t.Fatalf("Create returned status %d", status)
	}
	if body["result"] != true {
		t.Fatalf("Create envelope result = %v, want true", body["result"])
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("Create envelope missing user payload: %v", body)
	}
	if user["username"] != "alice" {
		t.Fatalf("Username not lower-cased: %v", user["username"])
	}
	if _, present := user["password"]; present {
		t.Fatal("Raw password leaked in response")
	}

	// Duplicate
	status, body = request(t, app, "POST", "/api/users", map[string]any{
		"username":  "ALICE",
		"email":     "other@example.com",
		"full_name": "Other",
		"password":  "secret",
	})
	if status != 409 {
		t.Fatalf("Duplicate create returned status %d, want 409", status)
	}
	if body["result"] != false {
		t.Fatal("Failure envelope must carry result false")
	}

	// Get
	status, body = request(t, app, "GET", "/api/users/ALICE", nil)
	if status != 200 {
		t.Fatalf("Get returned status %d", status)
	}

	// Login
	status, _ = request(t, app, "POST", "/api/users/login", map[string]any{
		"username": "alice",
		"password": "secret",
	})
	if status != 200 {
		t.Fatalf("Login returned status %d", status)
	}
	status, _ = request(t, app, "POST", "/api/users/login", map[string]any{
		"username": "alice",
		"password": "wrong",
	})
	if status != 401 {
		t.Fatalf("Bad login returned status %d, want 401", status)
	}

	// Delete
	status, _ = request(t, app, "DELETE", "/api/users/alice", nil)
	if status != 200 {
		t.Fatalf("Delete returned status %d", status)
	}
	status, _ = request(t, app, "GET", "/api/users/alice", nil)
	if status != 404 {
		t.Fatalf("Get after delete returned status %d, want 404", status)
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	app := setupApp(t)

	// Missing required fields
	status, body := request(t, app, "POST", "/api/users", map[string]any{
		"username": "alice",
	})
	if status != 400 {
		t.Fatalf("Invalid create returned status %d, want 400", status)
	}
	if body["result"] != false {
		t.Fatal("Failure envelope must carry result false")
	}

	// Enum violation on ticket type
	createUser(t, app, "alice")
	status, _ = request(t, app, "POST", "/api/projects", map[string]any{
		"project_id": "P1",
		"title":      "Project",
		"created_by": "alice",
	})
	if status != 200 {
		t.Fatalf("Project create returned status %d", status)
	}
	status, _ = request(t, app, "POST", "/api/tickets", map[string]any{
		"title":          "Bad type",
		"type":           "Chore",
		"priority":       "Normal",
		"created_by":     "alice",
		"parent_project": "P1",
	})
	if status != 400 {
		t.Fatalf("Invalid ticket type returned status %d, want 400", status)
	}
}

func TestTicketFlow(t *testing.T) {
	app := setupApp(t)
	createUser(t, app, "alice")
	createUser(t, app, "bob")

	status, _ := request(t, app, "POST", "/api/projects", map[string]any{
		"project_id": "P1",
		"title":      "Project",
		"created_by": "alice",
	})
	if status != 200 {
		t.Fatalf("Project create returned status %d", status)
	}

	// Create a ticket with a minted ID
	status, body := request(t, app, "POST", "/api/tickets", map[string]any{
		"title":          "First bug",
		"type":           "Bug",
		"priority":       "High",
		"created_by":     "alice",
		"parent_project": "P1",
	})
	if status != 200 {
		t.Fatalf("Ticket create returned status %d", status)
	}
	ticket := body["ticket"].(map[string]any)
	if ticket["ticket_id"] != "P1-0" {
		t.Fatalf("Minted ticket id = %v, want P1-0", ticket["ticket_id"])
	}
	if ticket["status"] != "Not Started" {
		t.Fatalf("Default status = %v, want Not Started", ticket["status"])
	}

	// Ghost assignee is a referential failure
	status, _ = request(t, app, "PUT", "/api/tickets/P1-0/assignee/ghost", nil)
	if status != 424 {
		t.Fatalf("Ghost assign returned status %d, want 424", status)
	}

	// Assign and list by assignee
	status, _ = request(t, app, "PUT", "/api/tickets/P1-0/assignee/bob", nil)
	if status != 200 {
		t.Fatalf("Assign returned status %d", status)
	}
	status, body = request(t, app, "GET", "/api/users/bob/tickets", nil)
	if status != 200 {
		t.Fatalf("User tickets returned status %d", status)
	}
	if tickets := body["tickets"].([]any); len(tickets) != 1 {
		t.Fatalf("User tickets returned %d tickets, want 1", len(tickets))
	}

	// Status change
	status, body = request(t, app, "PUT", "/api/tickets/P1-0/status", map[string]any{
		"status": "In Progress",
	})
	if status != 200 {
		t.Fatalf("Status change returned status %d", status)
	}
	if body["ticket"].(map[string]any)["status"] != "In Progress" {
		t.Fatal("Status change not reflected in response")
	}
	status, _ = request(t, app, "PUT", "/api/tickets/P1-0/status", map[string]any{
		"status": "Done",
	})
	if status != 400 {
		t.Fatalf("Invalid status returned %d, want 400", status)
	}

	// Comment, then read back through the ticket
	status, body = request(t, app, "POST", "/api/comments", map[string]any{
		"ticket_id":  "P1-0",
		"text":       "looking at it",
		"created_by": "bob",
	})
	if status != 200 {
		t.Fatalf("Comment create returned status %d", status)
	}
	if body["comment"].(map[string]any)["comment_id"] != "P1-0-0" {
		t.Fatalf("Minted comment id = %v, want P1-0-0", body["comment"].(map[string]any)["comment_id"])
	}
	status, body = request(t, app, "GET", "/api/tickets/P1-0/comments", nil)
	if status != 200 {
		t.Fatalf("Ticket comments returned status %d", status)
	}
	if comments := body["comments"].([]any); len(comments) != 1 {
		t.Fatalf("Ticket comments returned %d comments, want 1", len(comments))
	}

	// Ownership endpoints
	status, body = request(t, app, "GET", "/api/tickets/P1-0/is-owner/alice", nil)
	if status != 200 || body["owner"] != true {
		t.Fatalf("is-owner alice: status %d owner %v", status, body["owner"])
	}
	status, body = request(t, app, "GET", "/api/tickets/P1-0/is-owner/bob", nil)
	if status != 200 || body["owner"] != false {
		t.Fatalf("is-owner bob: status %d owner %v", status, body["owner"])
	}

	// Delete cascades to comments
	status, _ = request(t, app, "DELETE", "/api/tickets/P1-0", nil)
	if status != 200 {
		t.Fatalf("Ticket delete returned status %d", status)
	}
	status, _ = request(t, app, "GET", "/api/comments/P1-0-0", nil)
	if status != 404 {
		t.Fatalf("Comment survived ticket delete: status %d", status)
	}
}

func TestProjectMembershipEndpoints(t *testing.T) {
	app := setupApp(t)
	createUser(t, app, "alice")
	createUser(t, app, "bob")

	status, _ := request(t, app, "POST", "/api/projects", map[string]any{
		"project_id": "P1",
		"title":      "Project",
		"created_by": "alice",
	})
	if status != 200 {
		t.Fatalf("Project create returned status %d", status)
	}

	status, _ = request(t, app, "PUT", "/api/projects/P1/members/bob", nil)
	if status != 200 {
		t.Fatalf("Add member returned status %d", status)
	}
	status, body := request(t, app, "GET", "/api/projects/P1/is-member/bob", nil)
	if status != 200 || body["member"] != true {
		t.Fatalf("is-member bob: status %d member %v", status, body["member"])
	}
	status, body = request(t, app, "GET", "/api/projects/P1/is-owner/bob", nil)
	if status != 200 || body["owner"] != false {
		t.Fatalf("is-owner bob: status %d owner %v", status, body["owner"])
	}

	status, _ = request(t, app, "PUT", "/api/projects/P1/members/ghost", nil)
	if status != 424 {
		t.Fatalf("Ghost member returned status %d, want 424", status)
	}

	status, _ = request(t, app, "DELETE", "/api/projects/P1/members/bob", nil)
	if status != 200 {
		t.Fatalf("Remove member returned status %d", status)
	}
	status, body = request(t, app, "GET", "/api/projects/P1/is-member/bob", nil)
	if status != 200 || body["member"] != false {
		t.Fatalf("is-member after removal: status %d member %v", status, body["member"])
	}
}

func TestSearchEndpoints(t *testing.T) {
	app := setupApp(t)
	createUser(t, app, "alice")
	createUser(t, app, "bob")

	// Empty filters return everything
	status, body := request(t, app, "POST", "/api/users/search", map[string]any{})
	if status != 200 {
		t.Fatalf("User search returned status %d", status)
	}
	if users := body["users"].([]any); len(users) != 2 {
		t.Fatalf("Empty search returned %d users, want 2", len(users))
	}

	status, body = request(t, app, "POST", "/api/users/search", map[string]any{
		"username": "bob",
	})
	if status != 200 {
		t.Fatalf("User search returned status %d", status)
	}
	if users := body["users"].([]any); len(users) != 1 {
		t.Fatalf("Filtered search returned %d users, want 1", len(users))
	}
}

func TestEnvelopeShape(t *testing.T) {
	app := setupApp(t)

	status, body := request(t, app, "GET", "/api/users/nobody", nil)
	if status != 404 {
		t.Fatalf("Missing user returned status %d, want 404", status)
	}
	if body["code"] != float64(404) {
		t.Fatalf("Envelope code = %v, want 404", body["code"])
	}
	if body["result"] != false {
		t.Fatalf("Envelope result = %v, want false", body["result"])
	}
	if body["message"] == "" {
		t.Fatal("Envelope message must not be empty")
	}
}
