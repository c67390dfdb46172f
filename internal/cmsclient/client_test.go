package cmsclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testLogger создаёт логгер, пишущий в никуда.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupMockCMS создаёт мок content API с заданным обработчиком.
func setupMockCMS(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL, "", testLogger())
	if err != nil {
		t.Fatalf("New() вернул ошибку: %v", err)
	}
	return srv, client
}

func TestGet(t *testing.T) {
	_, client := setupMockCMS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("ожидался метод GET, получен %s", r.Method)
		}
		if r.URL.Path != "/api/blogs/42" {
			t.Errorf("неожиданный путь запроса: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("неожиданный заголовок Authorization: %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"id": 42, "title": "Миграция гну"},
		})
	})

	record, err := client.Get(context.Background(), "/api/blogs", "42", "tok-1")
	if err != nil {
		t.Fatalf("Get() вернул ошибку: %v", err)
	}
	if record["title"] != "Миграция гну" {
		t.Errorf("неожиданный title: %v", record["title"])
	}
}

func TestGetEnvelopeFailure(t *testing.T) {
	_, client := setupMockCMS(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "Blog not found",
		})
	})

	_, err := client.Get(context.Background(), "/api/blogs", "999", "tok-1")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("ожидался *UpstreamError, получено: %v", err)
	}
	if ue.StatusCode != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", ue.StatusCode)
	}
	if ue.Message != "Blog not found" {
		t.Errorf("ожидалось сообщение сервера, получено %q", ue.Message)
	}
}

func TestGetSuccessFalseWithOKStatus(t *testing.T) {
	// Сервер может вернуть 200 с success=false — это тоже провал.
	_, client := setupMockCMS(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
		})
	})

	_, err := client.Get(context.Background(), "/api/camps", "1", "")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("ожидался *UpstreamError, получено: %v", err)
	}
	if ue.Message != genericFailure {
		t.Errorf("ожидался generic fallback, получено %q", ue.Message)
	}
}

func TestGetMalformedBody(t *testing.T) {
	_, client := setupMockCMS(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	})

	_, err := client.Get(context.Background(), "/api/tours", "7", "tok")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("ожидался *UpstreamError, получено: %v", err)
	}
	if ue.Message != genericFailure {
		t.Errorf("ожидался generic fallback, получено %q", ue.Message)
	}
}

func TestDelete(t *testing.T) {
	called := false
	_, client := setupMockCMS(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodDelete {
			t.Errorf("ожидался метод DELETE, получен %s", r.Method)
		}
		if r.URL.Path != "/api/gallery/5" {
			t.Errorf("неожиданный путь запроса: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "deleted"})
	})

	if err := client.Delete(context.Background(), "/api/gallery", "5", "tok"); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	if !called {
		t.Error("запрос не дошёл до сервера")
	}
}

func TestTransportFailure(t *testing.T) {
	srv, client := setupMockCMS(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.Get(context.Background(), "/api/blogs", "1", "tok")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("ожидался *UpstreamError, получено: %v", err)
	}
	if ue.StatusCode != 0 {
		t.Errorf("ожидался StatusCode=0 для транспортной ошибки, получен %d", ue.StatusCode)
	}
}

func TestResolveMediaURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"пустой путь", "", ""},
		{"абсолютный http", "http://cdn.example.com/a.jpg", "http://cdn.example.com/a.jpg"},
		{"абсолютный https", "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"путь от корня", "/uploads/a.jpg", "/uploads/a.jpg"},
		{"относительный путь", "uploads/a.jpg", "/uploads/a.jpg"},
		{"обратные слэши", `uploads\images\a.jpg`, "/uploads/images/a.jpg"},
		{"обратные слэши от корня", `\uploads\a.jpg`, "/uploads/a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveMediaURL(tt.in); got != tt.want {
				t.Errorf("ResolveMediaURL(%q) = %q, ожидалось %q", tt.in, got, tt.want)
			}
		})
	}
}
