package pocketbase_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	pocketbase "github.com/chimerakang/pocketbase-go"
	"github.com/chimerakang/pocketbase-go/fake"
)

func TestCollections_GetFullList(t *testing.T) {
	srv := postsServer(t, fake.WithAuthCollection("users"))
	c := newClient(t, srv)

	if got := c.Collections().BaseCrudPath(); got != "/api/collections" {
		t.Errorf("BaseCrudPath() = %q, want %q", got, "/api/collections")
	}

	raw, err := c.Collections().GetFullList(t.Context())
	if err != nil {
		t.Fatalf("GetFullList() error: %v", err)
	}
	var list pocketbase.ListResponse[struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}]
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatalf("response is not a collection list: %v", err)
	}
	if len(list.Items) != 2 || list.Items[0].Name != "posts" || list.Items[1].Type != "auth" {
		t.Errorf("Items = %+v", list.Items)
	}
}

func TestCollections_NoAuthorizationHeader(t *testing.T) {
	srv := authServer(t, fake.WithAdminOnlyCollections())
	c := newClient(t, srv)

	if _, err := c.Collection("_superusers").AuthWithPassword(t.Context(), "root@example.com", "rootpass123"); err != nil {
		t.Fatalf("AuthWithPassword() error: %v", err)
	}

	raw, err := c.Collections().GetFullList(t.Context())
	if err != nil {
		t.Fatalf("GetFullList() error: %v", err)
	}
	// The error body is returned as is.
	if !strings.Contains(raw, `"status":401`) {
		t.Errorf("raw = %q, want the backend's 401 body", raw)
	}

	reqs := srv.Requests()
	if got := reqs[len(reqs)-1].Authorization; got != "" {
		t.Errorf("Authorization = %q, want none", got)
	}
}

func TestCollections_SharesInFlightRequests(t *testing.T) {
	srv := postsServer(t, fake.WithLatency(200*time.Millisecond))
	c := newClient(t, srv)

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Collections().GetFullList(t.Context())
		}()
	}
	wg.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Fatalf("call %d error: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("call %d returned a different body", i)
		}
	}
	if got := srv.CountRequests(http.MethodGet, "/api/collections"); got >= n {
		t.Errorf("requests = %d, want fewer than %d", got, n)
	}
}

func TestCollections_CanceledCallerDoesNotCancelOthers(t *testing.T) {
	srv := postsServer(t, fake.WithLatency(300*time.Millisecond))
	c := newClient(t, srv)

	ctx, cancel := context.WithCancel(t.Context())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Collections().GetFullList(ctx)
		firstErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	second := make(chan error, 1)
	var body string
	go func() {
		var err error
		body, err = c.Collections().GetFullList(t.Context())
		second <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("canceled caller error = %v, want context.Canceled", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("second caller error: %v", err)
	}
	if !strings.Contains(body, `"posts"`) {
		t.Errorf("body = %q, want the collection list", body)
	}
}

func TestCollections_TransportError(t *testing.T) {
	c, _ := pocketbase.NewDefault("http://127.0.0.1:1")
	_, err := c.Collections().GetFullList(t.Context())
	if err == nil {
		t.Fatal("GetFullList() expected error")
	}
	if !strings.HasPrefix(err.Error(), "pocketbase/collections:") {
		t.Errorf("error = %q, want pocketbase/collections prefix", err)
	}
}
