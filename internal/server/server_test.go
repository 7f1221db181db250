package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scrapify/internal/shared"
	"golang.org/x/oauth2"
)

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:8080/callback",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestOAuthHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantToken  bool
	}{
		{"valid callback", "state=xyz&code=good-code", http.StatusOK, true},
		{"denied by user", "state=xyz&error=access_denied", http.StatusBadRequest, false},
		{"exchange failure", "state=xyz&code=bad-code", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := newTokenServer(t)
			handler := NewOAuthHandler(newTestConfig(tokens.URL), "xyz")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			result := <-handler.Result()
			if tt.wantToken {
				if result.Error() != nil {
					t.Fatalf("unexpected error: %v", result.Error())
				}
				if result.Token.AccessToken != "access" || result.Token.RefreshToken != "refresh" {
					t.Errorf("unexpected token %+v", result.Token)
				}
				return
			}
			if !errors.Is(result.Error(), shared.ErrAuthFailed) {
				t.Errorf("error = %v, want ErrAuthFailed", result.Error())
			}
		})
	}

	t.Run("state mismatch leaves flow open", func(t *testing.T) {
		tokens := newTokenServer(t)
		handler := NewOAuthHandler(newTestConfig(tokens.URL), "xyz")

		stray := httptest.NewRecorder()
		handler.ServeHTTP(stray, httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=good-code", nil))
		if stray.Code != http.StatusBadRequest {
			t.Errorf("stray status = %d, want %d", stray.Code, http.StatusBadRequest)
		}

		select {
		case result := <-handler.Result():
			t.Fatalf("unexpected result after bad state: %+v", result)
		default:
		}

		valid := httptest.NewRecorder()
		handler.ServeHTTP(valid, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good-code", nil))
		if valid.Code != http.StatusOK {
			t.Errorf("valid status = %d, want %d", valid.Code, http.StatusOK)
		}

		result := <-handler.Result()
		if result.Error() != nil || result.Token.AccessToken != "access" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("second callback rejected", func(t *testing.T) {
		tokens := newTokenServer(t)
		handler := NewOAuthHandler(newTestConfig(tokens.URL), "xyz")

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good-code", nil))
		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?state=xyz&code=good-code", nil))

		if second.Code != http.StatusBadRequest {
			t.Errorf("second status = %d, want %d", second.Code, http.StatusBadRequest)
		}
	})

	t.Run("routes follow redirect path", func(t *testing.T) {
		config := newTestConfig("")
		config.RedirectURL = "http://localhost:9000/auth/done"
		handler := NewOAuthHandler(config, "s")

		if routes := handler.Routes(); len(routes) != 1 || routes[0] != "GET /auth/done" {
			t.Errorf("Routes() = %v", routes)
		}
	})
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		redirect string
		want     string
		wantErr  bool
	}{
		{"http://127.0.0.1:8080/callback", "127.0.0.1:8080", false},
		{"http://localhost/callback", "localhost:80", false},
		{"/callback", "", true},
		{"://bad", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.redirect, func(t *testing.T) {
			got, err := CallbackAddr(tt.redirect)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CallbackAddr() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CallbackAddr() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := CallbackPath("http://127.0.0.1:8080"); got != "/callback" {
		t.Errorf("CallbackPath() = %q, want /callback", got)
	}
}

func TestBasicRouter(t *testing.T) {
	t.Run("method filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "pong")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST /ping = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})

	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("order = %v", order)
		}
	})

	t.Run("logging middleware", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, log.DebugLevel)

		router := NewBasicRouter()
		router.Use(Logging(logger))
		router.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/callback") || !strings.Contains(out, "418") {
			t.Errorf("log output missing request details: %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("log output leaks query string: %q", out)
		}
	})
}

func TestAwaitToken(t *testing.T) {
	logger := shared.NewLogger(&bytes.Buffer{})

	t.Run("returns token from callback", func(t *testing.T) {
		tokens := newTokenServer(t)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		handler := NewOAuthHandler(newTestConfig(tokens.URL), "xyz")
		router := NewBasicRouter()
		router.Handler(handler)

		go func() {
			resp, err := http.Get("http://" + ln.Addr().String() + "/callback?state=xyz&code=good-code")
			if err == nil {
				resp.Body.Close()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		token, err := AwaitToken(ctx, ln, router, handler.Result(), logger)
		if err != nil {
			t.Fatalf("AwaitToken() error = %v", err)
		}
		if token.AccessToken != "access" {
			t.Errorf("AccessToken = %q, want access", token.AccessToken)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = AwaitToken(ctx, ln, NewBasicRouter(), make(chan OAuthResult), logger)
		if !errors.Is(err, shared.ErrAuthFailed) || !errors.Is(err, context.Canceled) {
			t.Errorf("AwaitToken() error = %v, want ErrAuthFailed and context.Canceled", err)
		}
	})

	t.Run("failed callback", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		results := make(chan OAuthResult, 1)
		results <- OAuthResult{err: shared.ErrAuthFailed}

		if _, err := AwaitToken(context.Background(), ln, NewBasicRouter(), results, logger); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("AwaitToken() error = %v, want ErrAuthFailed", err)
		}
	})
}
