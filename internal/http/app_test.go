package handlers_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/http/handlers"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/remote"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/repos"
	"github.com/ranmrojas/nakermotosstore-sub001/internal/services"
)

const adminToken = "test-admin-token"

// commerceAPI is a fake remote commerce API.
type commerceAPI struct {
	srv *httptest.Server

	mu        sync.Mutex
	down      bool
	catHits   atomic.Int32
	prodHits  atomic.Int32
	stockHits atomic.Int32
}

func newCommerceAPI(t *testing.T) *commerceAPI {
	t.Helper()
	api := &commerceAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		api.catHits.Add(1)
		if api.isDown() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"data":[
			{"id":1,"name":"Cascos","active":true},
			{"id":2,"name":"Llantas","active":true},
			{"id":3,"name":"Cascos integrales","active":true,"parentId":1}
		]}`)
	})
	mux.HandleFunc("/api/products", func(w http.ResponseWriter, r *http.Request) {
		api.prodHits.Add(1)
		if api.isDown() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		cat := r.URL.Query().Get("categoryId")
		_, _ = fmt.Fprintf(w, `[
			{"id":1%[1]s,"name":"Casco %[1]s","basePrice":"100000","onlinePrice":"90000","categoryId":%[1]s,"imageId":"p1","imageExt":"jpg","showOnline":true},
			{"id":2%[1]s,"name":"Visor %[1]s","basePrice":"20000","categoryId":%[1]s,"showOnline":true}
		]`, cat)
	})
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		api.stockHits.Add(1)
		if api.isDown() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"qty":3}`)
	})
	api.srv = httptest.NewServer(mux)
	t.Cleanup(api.srv.Close)
	return api
}

func (a *commerceAPI) isDown() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.down
}

func (a *commerceAPI) setDown(v bool) {
	a.mu.Lock()
	a.down = v
	a.mu.Unlock()
}

type testApp struct {
	app       *fiber.App
	api       *commerceAPI
	store     *repos.LocalStore
	preloader *services.Preloader
}

func newTestApp(t *testing.T, rc handlers.RouteConfig, important ...int64) *testApp {
	t.Helper()
	api := newCommerceAPI(t)
	client, err := remote.NewClient(api.srv.URL+"/api", remote.WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("remote client: %v", err)
	}
	store := repos.NewLocalStore(":memory:")
	t.Cleanup(func() { _ = store.Close() })

	cats := services.NewCategorySync(store, client, 0)
	products := services.NewProductSync(store, client, services.ProductSyncConfig{})
	pre := services.NewPreloader(store, cats, products, important)
	t.Cleanup(pre.Wait)
	status := services.NewStatusReporter(pre, products, store, services.StatusConfig{BatchSize: 3, ImportantCategoryIDs: important})

	deps := handlers.NewDeps(handlers.Services{
		Catalog:    services.NewCatalogService(store, cats, products, client),
		Inventory:  services.NewInventoryService(client),
		Categories: cats,
		Products:   products,
		Preloader:  pre,
		Status:     status,
		Store:      store,
	})

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Server().MaxRequestBodySize = 1 << 20
	app.Use(requestid.New())
	if rc.AdminToken == "" {
		rc.AdminToken = adminToken
	}
	handlers.Register(app, deps, rc)
	return &testApp{app: app, api: api, store: store, preloader: pre}
}

func (ta *testApp) do(t *testing.T, method, path string, admin bool) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if admin {
		req.Header.Set("X-Admin-Token", adminToken)
	}
	resp, err := ta.app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	var out map[string]any
	if len(body) > 0 && strings.HasPrefix(strings.TrimSpace(string(body)), "{") {
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("decode %s: %v body=%s", path, err, body)
		}
	}
	return resp, out
}

// captureLogs swaps the global zap logger for an observer while fn runs.
func captureLogs(t *testing.T, fn func()) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()
	fn()
	return logs
}

func waitPreload(t *testing.T, ta *testApp) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		ta.preloader.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("preload did not finish")
	}
}
