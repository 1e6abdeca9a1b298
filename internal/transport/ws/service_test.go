package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/JoseDiazCodes/LibertyLM/internal/domain/assistant"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/auth"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/guard/store"
	"github.com/JoseDiazCodes/LibertyLM/internal/domain/llm"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/config"
	"github.com/JoseDiazCodes/LibertyLM/internal/platform/storage"
)

type stubProvider struct{ answer string }

func (p *stubProvider) Generate(context.Context, []llm.Message) (string, *llm.Usage, error) {
	return p.answer, nil, nil
}

func (p *stubProvider) Stream(context.Context, []llm.Message) (<-chan llm.Chunk, error) {
	out := make(chan llm.Chunk, 3)
	out <- llm.Chunk{Content: "str"}
	out <- llm.Chunk{Content: "eamed"}
	out <- llm.Chunk{Done: true}
	close(out)
	return out, nil
}

func (p *stubProvider) ValidateConnection(context.Context) error { return nil }
func (p *stubProvider) ModelName() string                        { return "stub" }

func newTestServer(t *testing.T) (*httptest.Server, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:wstest-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tracker := guard.NewFailureTracker(store.NewMemory(), guard.TrackerConfig{})
	authService, err := auth.NewService(auth.Options{
		DB:      db,
		Tracker: tracker,
		Secret:  "ws-test-secret",
	})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	user, err := authService.Register(context.Background(), "alice", "", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := authService.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	assistantService := assistant.NewService(db, &stubProvider{answer: "streamed"}, nil)
	session, err := assistantService.CreateSession(context.Background(), user.ID, 0, "ws test")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	guardCfg := config.GuardConfig{
		WarningAfter:  config.Duration(time.Minute),
		TimeoutAfter:  config.Duration(2 * time.Minute),
		CheckInterval: config.Duration(time.Second),
	}

	engine := gin.New()
	NewService(assistantService, authService, guardCfg, nil).Register(engine)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return srv, token, session.ID
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?token=" + token
}

func TestWebsocketStreamedAnswer(t *testing.T) {
	srv, token, sessionID := newTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	err = ws.WriteJSON(ClientFrame{Type: TypeAsk, SessionID: sessionID, Question: "how does it work?"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var assembled string
	for {
		var frame ServerFrame
		if err := ws.ReadJSON(&frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		switch frame.Type {
		case TypeChunk:
			assembled += frame.Content
		case TypeDone:
			if assembled != "streamed" {
				t.Fatalf("unexpected streamed answer: %q", assembled)
			}
			return
		case TypeError:
			t.Fatalf("server error frame: %s", frame.Content)
		}
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "bad-token"), nil)
	if err == nil {
		t.Fatal("expected dial to fail with a bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestWebsocketUnknownFrame(t *testing.T) {
	srv, token, _ := newTestServer(t)

	ws, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(ClientFrame{Type: "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame ServerFrame
	if err := ws.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != TypeError {
		t.Fatalf("expected error frame, got %+v", frame)
	}
}
