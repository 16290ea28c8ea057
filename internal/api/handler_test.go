package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/dehost/internal/db"
	"github.com/RichardoC/dehost/internal/deploy"
	"github.com/RichardoC/dehost/internal/domainlink"
	"github.com/RichardoC/dehost/internal/ipfs"
	"github.com/RichardoC/dehost/internal/llm"
	"github.com/RichardoC/dehost/internal/models"
	"github.com/RichardoC/dehost/internal/ui"
)

type fakeChat struct {
	database *db.Database
	reply    string
}

func (f *fakeChat) ProcessMessage(_ context.Context, msg models.Message, sink llm.Sink) (*models.Message, error) {
	if sink != nil {
		sink(f.reply)
	}
	resp := &models.Message{ConvID: msg.ConvID, Role: models.RoleAssistant, Content: f.reply}
	return resp, f.database.SaveMessage(resp)
}

type testEnv struct {
	server      *httptest.Server
	database    *db.Database
	store       *ui.Store
	deployer    *deploy.Action
	uploadCalls *atomic.Int32
}

type envConfig struct {
	// gate, when set, holds every upload until it is closed.
	gate         chan struct{}
	historyLimit int
}

type envOption func(*envConfig)

func withUploadGate(gate chan struct{}) envOption {
	return func(c *envConfig) { c.gate = gate }
}

func withHistoryLimit(n int) envOption {
	return func(c *envConfig) { c.historyLimit = n }
}

func newTestEnv(t *testing.T, apiKey, reply string, opts ...envOption) *testEnv {
	t.Helper()

	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	uploadCalls := &atomic.Int32{}
	lighthouse := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploadCalls.Add(1)
		if cfg.gate != nil {
			<-cfg.gate
		}
		_, _ = w.Write([]byte(`{"Name":"index.html","Hash":"Qm123","Size":"10"}`))
	}))
	t.Cleanup(lighthouse.Close)

	database, err := db.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	store := ui.NewStore()
	t.Cleanup(store.Close)

	client, err := ipfs.NewClient(ipfs.StaticKey(apiKey), ipfs.WithUploadURL(lighthouse.URL))
	require.NoError(t, err)

	deployer, err := deploy.NewAction(client,
		deploy.WithNotifier(store),
		deploy.WithRecorder(database),
		deploy.WithFlag(store.SetDeploying))
	require.NoError(t, err)

	sharer, err := deploy.NewSharer(client, store, nil, 0, store.SetUploading)
	require.NoError(t, err)

	h := NewHandler(Deps{
		DB:        database,
		LLM:       &fakeChat{database: database, reply: reply},
		Deployer:  deployer,
		Sharer:    sharer,
		Store:     store,
		Registrar: domainlink.LogRegistrar{},

		HistoryLimit:    cfg.historyLimit,
		LoadingInterval: 5 * time.Millisecond,
	})
	srv := httptest.NewServer(h.Router(RouterConfig{}))
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, database: database, store: store, deployer: deployer, uploadCalls: uploadCalls}
}

// newConversation creates a conversation holding one exchange and returns its path.
func (e *testEnv) newConversation(t *testing.T) string {
	t.Helper()
	resp, conv := e.do(t, http.MethodPost, "/api/conversations", CreateConversationRequest{Title: "site"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	path := "/api/conversations/" + strconv.FormatInt(int64(conv["id"].(float64)), 10)
	resp, _ = e.do(t, http.MethodPost, path+"/messages", MessageRequest{Content: "make a page"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return path
}

func (e *testEnv) dial(t *testing.T, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/ui/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestChatDeployAndLink(t *testing.T) {
	env := newTestEnv(t, "key", "<!DOCTYPE html><html>...</html>")

	events, cancel := env.store.Subscribe(64)
	defer cancel()

	resp, conv := env.do(t, http.MethodPost, "/api/conversations", CreateConversationRequest{Title: "site"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	convID := int64(conv["id"].(float64))
	path := "/api/conversations/" + strconv.FormatInt(convID, 10)

	resp, _ = env.do(t, http.MethodPost, path+"/messages", MessageRequest{Content: "make a page"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.store.Snapshot().Started)

	// Linking before any deployment is refused.
	resp, _ = env.do(t, http.MethodPost, "/api/domain/link", domainRequest{Domain: "example.com"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, out := env.do(t, http.MethodPost, path+"/deploy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Qm123", out["content_id"])
	require.Equal(t, "https://gateway.lighthouse.storage/ipfs/Qm123", out["view_url"])
	require.Equal(t, "Qm123", out["domain_link"])
	require.EqualValues(t, 1, env.uploadCalls.Load())
	require.False(t, env.deployer.Deploying())

	var toast *deploy.Notification
	for toast == nil {
		ev := <-events
		if ev.Type == ui.EventToast {
			toast = ev.Toast
		}
	}
	require.Equal(t, "https://gateway.lighthouse.storage/ipfs/Qm123", toast.URL)
	require.Equal(t, "Qm123", toast.DomainLinkCID)

	resp, out = env.do(t, http.MethodPost, "/api/domain/link", domainRequest{Domain: "not a domain"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, string(domainlink.StepCollecting), out["step"])
	require.NotEmpty(t, out["error"])

	resp, out = env.do(t, http.MethodPost, "/api/domain/link", domainRequest{Domain: "example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, string(domainlink.StepInstructions), out["step"])
	records := out["records"].([]any)
	require.Len(t, records, 2)
	txt := records[1].(map[string]any)
	require.Equal(t, "dnslink=/ipfs/Qm123", txt["value"])

	deployments, err := env.database.GetDeployments(convID, 10)
	require.NoError(t, err)
	require.Len(t, deployments, 1)
}

func TestDeploy_NoContent(t *testing.T) {
	env := newTestEnv(t, "key", "What kind of page would you like?")

	_, conv := env.do(t, http.MethodPost, "/api/conversations", CreateConversationRequest{Title: "chat"})
	path := "/api/conversations/" + strconv.FormatInt(int64(conv["id"].(float64)), 10)
	env.do(t, http.MethodPost, path+"/messages", MessageRequest{Content: "hi"})

	resp, out := env.do(t, http.MethodPost, path+"/deploy", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, string(deploy.ErrorNoContent), out["code"])
	require.Zero(t, env.uploadCalls.Load())
}

func TestDeploy_MissingCredential(t *testing.T) {
	env := newTestEnv(t, "", "<!DOCTYPE html><html></html>")

	_, conv := env.do(t, http.MethodPost, "/api/conversations", CreateConversationRequest{Title: "chat"})
	path := "/api/conversations/" + strconv.FormatInt(int64(conv["id"].(float64)), 10)
	env.do(t, http.MethodPost, path+"/messages", MessageRequest{Content: "make a page"})

	resp, out := env.do(t, http.MethodPost, path+"/deploy", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, string(deploy.ErrorConfiguration), out["code"])
	require.Zero(t, env.uploadCalls.Load())
}

func TestValidateDomain(t *testing.T) {
	env := newTestEnv(t, "key", "")

	_, out := env.do(t, http.MethodPost, "/api/domain/validate", domainRequest{Domain: "sub.example.co"})
	require.Equal(t, true, out["valid"])

	_, out = env.do(t, http.MethodPost, "/api/domain/validate", domainRequest{Domain: "-bad-.com"})
	require.Equal(t, false, out["valid"])
	require.Equal(t, "Please enter a valid domain name (e.g., example.com)", out["error"])
}

func TestShare(t *testing.T) {
	env := newTestEnv(t, "key", "")

	resp, out := env.do(t, http.MethodPost, "/api/fileshare", shareRequest{Text: "notes"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Qm123", out["content_id"])

	resp, _ = env.do(t, http.MethodPost, "/api/fileshare", shareRequest{Text: ""})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestUIStateAndToggle(t *testing.T) {
	env := newTestEnv(t, "key", "")

	resp, out := env.do(t, http.MethodGet, "/api/ui/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	header := out["header"].(map[string]any)
	require.Equal(t, "DeHost", header["brand"])
	motions := out["motions"].(map[string]any)
	require.Contains(t, motions["dialog"], "open")
	require.Contains(t, motions["panel"], "hover")

	resp, out = env.do(t, http.MethodPost, "/api/ui/toggle/workbench", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, out["state"].(map[string]any)["show_workbench"])

	resp, _ = env.do(t, http.MethodPost, "/api/ui/toggle/sidebar", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBadConversationID(t *testing.T) {
	env := newTestEnv(t, "key", "")
	resp, _ := env.do(t, http.MethodPost, "/api/conversations/abc/deploy", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetDeployments_HonoursHistoryLimit(t *testing.T) {
	env := newTestEnv(t, "key", "<!DOCTYPE html><html></html>", withHistoryLimit(1))
	path := env.newConversation(t)

	for i := 0; i < 2; i++ {
		resp, _ := env.do(t, http.MethodPost, path+"/deploy", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(env.server.URL + "/api/deployments")
	require.NoError(t, err)
	defer resp.Body.Close()
	var deployments []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&deployments))
	require.Len(t, deployments, 1)
}

func TestStreamEvents_LoadingFramesWhileDeploying(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, "key", "<!DOCTYPE html><html></html>", withUploadGate(gate))
	path := env.newConversation(t)

	conn, _, err := env.dial(t, "")
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan int, 1)
	go func() {
		resp, err := http.Post(env.server.URL+path+"/deploy", "application/json", nil)
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frames []ui.Loading
	for len(frames) < 2 {
		var ev ui.Event
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == ui.EventLoading {
			frames = append(frames, *ev.Loading)
		}
	}
	require.Equal(t, 0, frames[0].Count)
	require.Equal(t, ui.PhaseVisible, frames[0].Dots[0])
	require.Equal(t, "20px", frames[0].Lines[0].Width)
	require.Equal(t, 1.0, frames[0].Stars[0].Opacity)
	require.Less(t, frames[1].Count, 4)

	close(gate)
	require.Equal(t, http.StatusOK, <-done)
}

func TestStreamEvents_RejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t, "key", "")

	_, resp, err := env.dial(t, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := env.dial(t, "http://localhost:5173")
	require.NoError(t, err)
	conn.Close()
}

func TestShare_InProgressMatchesToast(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, "key", "", withUploadGate(gate))

	events, cancel := env.store.Subscribe(64)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := http.Post(env.server.URL+"/api/fileshare", "application/json", strings.NewReader(`{"text":"first"}`))
		if err == nil {
			resp.Body.Close()
		}
	}()
	require.Eventually(t, func() bool { return env.store.Snapshot().Uploading }, 5*time.Second, 5*time.Millisecond)

	resp, out := env.do(t, http.MethodPost, "/api/fileshare", shareRequest{Text: "second"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, string(deploy.ErrorInProgress), out["code"])

	var toast *deploy.Notification
	for toast == nil {
		if ev := <-events; ev.Type == ui.EventToast {
			toast = ev.Toast
		}
	}
	require.Equal(t, deploy.LevelWarning, toast.Level)
	require.Equal(t, toast.Message, out["error"])

	close(gate)
	<-done
}

func TestLinkDomain_CarriesDialogMotion(t *testing.T) {
	env := newTestEnv(t, "key", "<!DOCTYPE html><html></html>")
	path := env.newConversation(t)
	resp, _ := env.do(t, http.MethodPost, path+"/deploy", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, out := env.do(t, http.MethodPost, "/api/domain/link", domainRequest{Domain: "example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, out["can_submit"])
	dialog := out["dialog"].(map[string]any)
	require.Equal(t, "-50%", dialog["y"])
	require.Equal(t, 1.0, out["backdrop"].(map[string]any)["opacity"])
}
