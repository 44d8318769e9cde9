package fal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequiresAPIKey(t *testing.T) {
	c := NewClient("")
	if c.IsConfigured() {
		t.Error("expected unconfigured client")
	}
	if _, err := c.Run(context.Background(), "fal-ai/x", nil); err == nil {
		t.Error("expected error without key")
	}
	c.UpdateAPIKey("k")
	if !c.IsConfigured() {
		t.Error("expected configured after UpdateAPIKey")
	}
}

func TestRunWrapsBodyAsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fal-ai/z-image/turbo" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Key secret" {
			t.Errorf("Authorization = %q", got)
		}
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in)
		if in["prompt"] != "a cat" {
			t.Errorf("input = %v", in)
		}
		w.Write([]byte(`{"images":[{"url":"http://img"}]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURLs(srv.URL, srv.URL, srv.URL))
	out, err := c.Run(context.Background(), "fal-ai/z-image/turbo", map[string]any{"prompt": "a cat"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, _ := out["data"].(map[string]any)
	images, _ := data["images"].([]any)
	if len(images) != 1 {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestRunReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad input"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURLs(srv.URL, srv.URL, srv.URL))
	_, err := c.Run(context.Background(), "m", map[string]any{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected APIError 422, got %v", err)
	}
}

func TestSubscribePollsUntilCompleted(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("POST /fal-ai/video", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QueueSubmission{
			RequestID:   "req-1",
			StatusURL:   base + "/fal-ai/video/requests/req-1/status",
			ResponseURL: base + "/fal-ai/video/requests/req-1",
		})
	})
	mux.HandleFunc("GET /fal-ai/video/requests/req-1/status", func(w http.ResponseWriter, r *http.Request) {
		status := StatusInQueue
		if polls.Add(1) >= 3 {
			status = StatusCompleted
		}
		json.NewEncoder(w).Encode(QueueStatus{Status: status})
	})
	mux.HandleFunc("GET /fal-ai/video/requests/req-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"video":{"url":"http://vid"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	c := NewClient("k", WithBaseURLs(srv.URL, srv.URL, srv.URL), WithPollInterval(time.Millisecond))
	out, err := c.Subscribe(context.Background(), "fal-ai/video", map[string]any{"prompt": "x"})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if out["requestId"] != "req-1" {
		t.Errorf("requestId = %v", out["requestId"])
	}
	data, _ := out["data"].(map[string]any)
	video, _ := data["video"].(map[string]any)
	if video["url"] != "http://vid" {
		t.Errorf("data = %v", data)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestSubscribeFillsMissingQueueURLs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /m", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"request_id":"r9"}`))
	})
	mux.HandleFunc("GET /m/requests/r9/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"COMPLETED"}`))
	})
	mux.HandleFunc("GET /m/requests/r9", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"audio":{"url":"http://a"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient("k", WithBaseURLs(srv.URL, srv.URL, srv.URL))
	out, err := c.Subscribe(context.Background(), "m", map[string]any{})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if out["requestId"] != "r9" {
		t.Errorf("requestId = %v", out["requestId"])
	}
}

func TestSubscribeCompletedWithError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /m", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"request_id":"r1"}`))
	})
	mux.HandleFunc("GET /m/requests/r1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"COMPLETED","error":"nsfw content"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient("k", WithBaseURLs(srv.URL, srv.URL, srv.URL))
	_, err := c.Subscribe(context.Background(), "m", map[string]any{})
	if err == nil || !strings.Contains(err.Error(), "nsfw content") {
		t.Errorf("expected provider error, got %v", err)
	}
}

func TestSubscribeHonorsContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /m", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"request_id":"r1"}`))
	})
	mux.HandleFunc("GET /m/requests/r1/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"IN_PROGRESS"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c := NewClient("k", WithBaseURLs(srv.URL, srv.URL, srv.URL), WithPollInterval(5*time.Millisecond))
	_, err := c.Subscribe(ctx, "m", map[string]any{})
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestUploadFromURL(t *testing.T) {
	var uploaded []byte
	var uploadType string
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("GET /files/shot.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("PNGDATA"))
	})
	mux.HandleFunc("POST /storage/upload/initiate", func(w http.ResponseWriter, r *http.Request) {
		var req uploadInitRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.FileName != "shot.png" || req.ContentType != "image/png" {
			t.Errorf("initiate request = %+v", req)
		}
		json.NewEncoder(w).Encode(uploadInitResponse{
			UploadURL: base + "/put/abc",
			FileURL:   "https://cdn.fal.media/abc.png",
		})
	})
	mux.HandleFunc("PUT /put/abc", func(w http.ResponseWriter, r *http.Request) {
		uploaded, _ = io.ReadAll(r.Body)
		uploadType = r.Header.Get("Content-Type")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	base = srv.URL

	c := NewClient("k", WithBaseURLs(srv.URL, srv.URL, srv.URL), WithPublicURL(srv.URL+"/"))
	got, err := c.UploadFromURL(context.Background(), "/files/shot.png")
	if err != nil {
		t.Fatalf("UploadFromURL: %v", err)
	}
	if got != "https://cdn.fal.media/abc.png" {
		t.Errorf("url = %s", got)
	}
	if string(uploaded) != "PNGDATA" || uploadType != "image/png" {
		t.Errorf("uploaded %q as %q", uploaded, uploadType)
	}
}

func TestUploadFromURLFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient("k", WithPublicURL(srv.URL))
	if _, err := c.UploadFromURL(context.Background(), "missing.png"); err == nil {
		t.Error("expected fetch error")
	}
}

func TestAbsoluteURL(t *testing.T) {
	c := NewClient("k", WithPublicURL("http://host:3000/"))
	tests := map[string]string{
		"https://cdn/x.png": "https://cdn/x.png",
		"/files/a.png":      "http://host:3000/files/a.png",
		"files/a.png":       "http://host:3000/files/a.png",
	}
	for in, want := range tests {
		if got := c.absoluteURL(in); got != want {
			t.Errorf("absoluteURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUploadFromURLRejectsOversizedSource(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"declared length", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("0123456789ABCDEF"))
		}},
		{"chunked body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("01234567"))
			w.(http.Flusher).Flush()
			w.Write([]byte("89ABCDEF"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var initiated bool
			mux := http.NewServeMux()
			mux.HandleFunc("GET /big.bin", tt.handler)
			mux.HandleFunc("POST /storage/upload/initiate", func(w http.ResponseWriter, r *http.Request) {
				initiated = true
			})
			srv := httptest.NewServer(mux)
			defer srv.Close()

			c := NewClient("k", WithBaseURLs(srv.URL, srv.URL, srv.URL), WithMaxSourceSize(10))
			_, err := c.UploadFromURL(context.Background(), srv.URL+"/big.bin")
			if !errors.Is(err, ErrSourceTooLarge) {
				t.Errorf("err = %v, want ErrSourceTooLarge", err)
			}
			if initiated {
				t.Error("oversized source was uploaded")
			}
		})
	}
}
