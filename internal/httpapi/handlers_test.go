package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/impostor-client/internal/conn"
	"github.com/DoyleJ11/impostor-client/internal/engine"
	"github.com/DoyleJ11/impostor-client/internal/protocol"
	"github.com/DoyleJ11/impostor-client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeSession records calls and returns err for every command.
type fakeSession struct {
	err      error
	calls    []string
	args     []string
	settings engine.Settings
	view     session.View
	views    chan session.View
}

func (f *fakeSession) record(call string, args ...string) error {
	f.calls = append(f.calls, call)
	f.args = append(f.args, args...)
	return f.err
}

func (f *fakeSession) CreateRoom(_ context.Context, name string) (string, error) {
	if err := f.record("create", name); err != nil {
		return "", err
	}
	return "ABC123", nil
}

func (f *fakeSession) JoinRoom(_ context.Context, code, name string) error {
	return f.record("join", code, name)
}

func (f *fakeSession) UpdateSettings(_ context.Context, s engine.Settings) error {
	f.settings = s
	return f.record("settings")
}

func (f *fakeSession) StartGame(context.Context) error   { return f.record("start-game") }
func (f *fakeSession) StartVoting(context.Context) error { return f.record("start-voting") }
func (f *fakeSession) AdvanceTurn(context.Context) error { return f.record("next-turn") }
func (f *fakeSession) RestartGame(context.Context) error { return f.record("restart") }
func (f *fakeSession) Leave(context.Context) error       { return f.record("leave") }
func (f *fakeSession) ClearNotice(context.Context) error { return f.record("clear-notice") }

func (f *fakeSession) Vote(_ context.Context, id string) error { return f.record("vote", id) }

func (f *fakeSession) ShowNotice(_ context.Context, msg string) error {
	return f.record("notice", msg)
}

func (f *fakeSession) View(context.Context) (session.View, error) {
	return f.view, f.err
}

func (f *fakeSession) Subscribe(context.Context, int) (<-chan session.View, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.views, func() {}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_Commands(t *testing.T) {
	cases := []struct {
		method, path, body string
		wantCall           string
	}{
		{http.MethodPost, "/game/start", "", "start-game"},
		{http.MethodPost, "/voting/start", "", "start-voting"},
		{http.MethodPost, "/turn/next", "", "next-turn"},
		{http.MethodPost, "/game/restart", "", "restart"},
		{http.MethodPost, "/leave", "", "leave"},
		{http.MethodDelete, "/notice", "", "clear-notice"},
		{http.MethodPost, "/vote", `{"playerId":"p2"}`, "vote"},
		{http.MethodPost, "/notice", `{"message":"hi"}`, "notice"},
		{http.MethodPost, "/rooms/abc123/join", `{"playerName":"Ana"}`, "join"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			fs := &fakeSession{}
			rec := do(t, SetupRoutes(fs, zaptest.NewLogger(t)), tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
			require.Equal(t, []string{tc.wantCall}, fs.calls)
		})
	}
}

func TestRoutes_JoinPassesCodeAndName(t *testing.T) {
	fs := &fakeSession{}
	do(t, SetupRoutes(fs, zaptest.NewLogger(t)), http.MethodPost, "/rooms/abc123/join", `{"playerName":"Ana"}`)
	assert.Equal(t, []string{"abc123", "Ana"}, fs.args)
}

func TestRoutes_CreateRoom(t *testing.T) {
	fs := &fakeSession{}
	rec := do(t, SetupRoutes(fs, zaptest.NewLogger(t)), http.MethodPost, "/rooms", `{"playerName":"Ana"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"roomCode":"ABC123"}`, rec.Body.String())
}

func TestRoutes_UpdateSettings(t *testing.T) {
	fs := &fakeSession{}
	rec := do(t, SetupRoutes(fs, zaptest.NewLogger(t)), http.MethodPut, "/settings",
		`{"impostorCount":2,"roundDuration":90,"impostorCanSeeHint":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, engine.Settings{ImpostorCount: 2, RoundDuration: 90, ImpostorCanSeeHint: true}, fs.settings)
}

func TestRoutes_BadBody(t *testing.T) {
	fs := &fakeSession{}
	rec := do(t, SetupRoutes(fs, zaptest.NewLogger(t)), http.MethodPost, "/vote", `{`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, fs.calls)
}

func TestRoutes_ErrorStatus(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		want    int
		wantMsg string
	}{
		{"rejected", &session.RejectedError{Op: protocol.CmdJoinRoom, Message: "room full"}, http.StatusUnprocessableEntity, "room full"},
		{"empty name", session.ErrEmptyName, http.StatusBadRequest, session.ErrEmptyName.Error()},
		{"no room", engine.ErrNoRoom, http.StatusConflict, engine.ErrNoRoom.Error()},
		{"already voted", engine.ErrAlreadyVoted, http.StatusConflict, engine.ErrAlreadyVoted.Error()},
		{"not connected", conn.ErrNotConnected, http.StatusServiceUnavailable, conn.ErrNotConnected.Error()},
		{"connection lost", session.ErrConnectionLost, http.StatusServiceUnavailable, session.ErrConnectionLost.Error()},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, context.DeadlineExceeded.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fs := &fakeSession{err: tc.err}
			rec := do(t, SetupRoutes(fs, zaptest.NewLogger(t)), http.MethodPost, "/rooms/abc/join", `{"playerName":"Ana"}`)
			if rec.Code != tc.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tc.want)
			}
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.wantMsg, body.Error)
		})
	}
}

func TestRoutes_State(t *testing.T) {
	fs := &fakeSession{view: session.View{Phase: engine.PhaseVoting, RoomCode: "ABC123", VotesCast: 1, TotalPlayers: 3}}
	rec := do(t, SetupRoutes(fs, zaptest.NewLogger(t)), http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got session.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, engine.PhaseVoting, got.Phase)
	assert.Equal(t, "ABC123", got.RoomCode)
	assert.Equal(t, 1, got.VotesCast)
}

func TestEvents_StreamsViews(t *testing.T) {
	fs := &fakeSession{views: make(chan session.View, 2)}
	srv := httptest.NewServer(SetupRoutes(fs, zaptest.NewLogger(t)))
	defer srv.Close()

	fs.views <- session.View{Phase: engine.PhaseLobby}
	fs.views <- session.View{Phase: engine.PhaseWaiting, RoomCode: "ABC123"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var phases []engine.Phase
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() && len(phases) < 2 {
		line := sc.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var v session.View
		require.NoError(t, json.Unmarshal([]byte(data), &v))
		phases = append(phases, v.Phase)
	}
	assert.Equal(t, []engine.Phase{engine.PhaseLobby, engine.PhaseWaiting}, phases)
}

func TestEvents_EndsWhenSessionDropsSubscriber(t *testing.T) {
	fs := &fakeSession{views: make(chan session.View)}
	close(fs.views)
	srv := httptest.NewServer(SetupRoutes(fs, zaptest.NewLogger(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	done := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(resp.Body).ReadString(0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not end after the subscription closed")
	}
}
