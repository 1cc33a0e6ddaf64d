package handlers_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/taskpilot/taskpilot/internal/handlers"
	"github.com/taskpilot/taskpilot/internal/services"
)

func setupChatApp(upstream string) *fiber.App {
	chatService := &services.ChatService{
		APIKey:  "test-key",
		BaseURL: upstream,
		Model:   "gpt-4o",
		Client:  http.DefaultClient,
		Log:     slog.New(slog.DiscardHandler),
	}
	app := fiber.New()
	handler := &handlers.ChatHandler{Chat: chatService}
	app.Post("/api/chat", handler.Complete)
	return app
}

func TestChatEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "pong"}},
			},
		})
	}))
	defer upstream.Close()

	app := setupChatApp(upstream.URL)
	status, body := request(t, app, "POST", "/api/chat", map[string]any{
		"prompt": "ping",
	})
	if status != 200 {
		t.Fatalf("Chat returned status %d", status)
	}
	if body["response"] != "pong" {
		t.Fatalf("Chat response = %v, want pong", body["response"])
	}
	history, ok := body["history"].([]any)
	if !ok || len(history) != 2 {
		t.Fatalf("Chat history = %v, want 2 turns", body["history"])
	}
}

func TestChatEndpointMissingPrompt(t *testing.T) {
	app := setupChatApp("http://127.0.0.1:1")
	status, _ := request(t, app, "POST", "/api/chat", map[string]any{})
	if status != 400 {
		t.Fatalf("Missing prompt returned status %d, want 400", status)
	}
}

func TestChatEndpointUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	app := setupChatApp(upstream.URL)
	status, body := request(t, app, "POST", "/api/chat", map[string]any{
		"prompt": "ping",
	})
	if status != 424 {
		t.Fatalf("Upstream failure returned status %d, want 424", status)
	}
	if body["result"] != false {
		t.Fatal("Failure envelope must carry result false")
	}
}
