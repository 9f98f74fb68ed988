// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/spf13/afero"

	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/catalog"
	ws "github.com/tomtom215/capturehub/internal/websocket"
)

func TestWebSocket_RejectsUnlistedOrigin(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.test"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		conn.Close()
		t.Fatal("Dial() succeeded, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestWebSocket_ReceivesCatalogMutations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := ws.NewHub()
	go func() { _ = hub.RunWithContext(ctx) }()

	blobs := blobstore.New(afero.NewMemMapFs())
	cat, err := catalog.Open(ctx, catalog.NewFilePersister(afero.NewMemMapFs()), blobs, hub)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}

	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitDisabled = true
	handler := NewHandler(cat, hub, nil, HandlerConfig{WSAllowedOrigins: []string{"http://viewer.test"}})
	server := httptest.NewServer(NewRouter(handler, RouterConfig{Middleware: mw}).SetupChi())
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://viewer.test"}})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err := server.Client().Post(server.URL+"/album", "application/json", strings.NewReader(`{"name":"trip"}`))
	if err != nil {
		t.Fatalf("POST /album error = %v", err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg struct {
		Type string              `json:"type"`
		Data map[string][]string `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if msg.Type != ws.MessageTypeAlbumsUpdated {
		t.Errorf("type = %q, want %q", msg.Type, ws.MessageTypeAlbumsUpdated)
	}
	if _, ok := msg.Data["trip"]; !ok {
		t.Errorf("data = %v, want trip album", msg.Data)
	}
}
