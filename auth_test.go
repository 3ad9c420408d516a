package pocketbase_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pocketbase "github.com/chimerakang/pocketbase-go"
	"github.com/chimerakang/pocketbase-go/audit"
	"github.com/chimerakang/pocketbase-go/fake"
	"github.com/chimerakang/pocketbase-go/token"
)

const aliceID = "alice0000000001"

func authServer(t *testing.T, opts ...fake.Option) *fake.Server {
	t.Helper()
	base := []fake.Option{
		fake.WithAuthCollection("users"),
		fake.WithAuthRecord("users", "alice@example.com", "secret123", map[string]any{"id": aliceID, "name": "Alice"}),
		fake.WithAuthRecord("users", "bob@example.com", "hunter22", map[string]any{"id": "bob000000000001", "name": "Bob"}),
		fake.WithSuperuser("root@example.com", "rootpass123"),
	}
	srv := fake.NewServer(append(base, opts...)...)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthWithPassword_PopulatesStore(t *testing.T) {
	srv := authServer(t)
	c := newClient(t, srv)

	resp, err := c.Collection("users").AuthWithPassword(t.Context(), "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("AuthWithPassword() error: %v", err)
	}
	if resp.Record.Name != "Alice" || resp.Record.Email != "alice@example.com" {
		t.Errorf("Record = %+v", resp.Record)
	}

	store := c.AuthStore()
	if store.Token() != resp.Token {
		t.Errorf("Token() = %q, want the returned token", store.Token())
	}
	if store.CollectionName() != "users" {
		t.Errorf("CollectionName() = %q, want %q", store.CollectionName(), "users")
	}
	if store.CollectionID() != srv.CollectionID("users") {
		t.Errorf("CollectionID() = %q, want %q", store.CollectionID(), srv.CollectionID("users"))
	}
	if store.RecordID() != aliceID {
		t.Errorf("RecordID() = %q, want %q", store.RecordID(), aliceID)
	}
	rec, ok := store.Record()
	if !ok || rec.ID != aliceID {
		t.Errorf("Record() = %+v, %v", rec, ok)
	}
	if !store.IsValid() {
		t.Error("IsValid() = false after a successful authentication")
	}
	if store.IsSuperuser() {
		t.Error("IsSuperuser() = true for a regular user")
	}

	if srv.Requests()[0].Authorization != "" {
		t.Error("auth-with-password must not send a bearer token")
	}
}

func TestAuthWithPassword_Superuser(t *testing.T) {
	srv := authServer(t)
	c := newClient(t, srv)

	if _, err := c.Collection("_superusers").AuthWithPassword(t.Context(), "root@example.com", "rootpass123"); err != nil {
		t.Fatalf("AuthWithPassword() error: %v", err)
	}
	store := c.AuthStore()
	if !store.IsSuperuser() {
		t.Error("IsSuperuser() = false for a superuser")
	}
	if store.CollectionID() != pocketbase.SuperusersCollectionID {
		t.Errorf("CollectionID() = %q, want %q", store.CollectionID(), pocketbase.SuperusersCollectionID)
	}
	if !store.IsValid() {
		t.Error("IsValid() = false for a fresh superuser session")
	}
}

func TestAuthWithPassword_SuperuserByCollectionID(t *testing.T) {
	srv := authServer(t)
	c := newClient(t, srv)

	if _, err := c.Collection(pocketbase.SuperusersCollectionID).AuthWithPassword(t.Context(), "root@example.com", "rootpass123"); err != nil {
		t.Fatalf("AuthWithPassword() error: %v", err)
	}
	if !c.AuthStore().IsSuperuser() {
		t.Error("IsSuperuser() = false when authenticating through the collection id")
	}
}

func TestAuthWithPassword_WrongPassword(t *testing.T) {
	srv := authServer(t)
	c := newClient(t, srv)

	_, err := c.Collection("users").AuthWithPassword(t.Context(), "alice@example.com", "wrong")
	var he *pocketbase.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("error = %v, want *HTTPError", err)
	}
	if he.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", he.Status)
	}
	if he.Message != "Failed to authenticate." {
		t.Errorf("Message = %q", he.Message)
	}
	if c.AuthStore().Token() != "" {
		t.Error("failed authentication must not touch the store")
	}
}

// strictUser cannot decode the fake's string name field.
type strictUser struct {
	pocketbase.BaseRecord
	Name int `json:"name"`
}

func TestAuthWithPassword_RecordTypeMismatch(t *testing.T) {
	srv := authServer(t)
	c, err := pocketbase.New[strictUser](srv.URL())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = c.Collection("users").AuthWithPassword(t.Context(), "alice@example.com", "secret123")
	if err == nil {
		t.Fatal("AuthWithPassword() expected a decode error")
	}

	store := c.AuthStore()
	if store.Token() == "" {
		t.Error("Token() should be stored even when the record does not decode")
	}
	if store.CollectionName() != "users" || store.RecordID() != aliceID {
		t.Errorf("identity = %q/%q, want users/%s", store.CollectionName(), store.RecordID(), aliceID)
	}
	if _, ok := store.Record(); ok {
		t.Error("Record() should be absent when the record does not decode")
	}
	if store.IsValid() {
		t.Error("IsValid() = true without a record")
	}
}

func TestAuthWithPassword_MismatchClearsEarlierRecord(t *testing.T) {
	srv := authServer(t, fake.WithAuthRecord("users", "carol@example.com", "carolpass", map[string]any{"id": "carol0000000001", "name": 7.0}))
	c, err := pocketbase.New[strictUser](srv.URL())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	users := c.Collection("users")

	if _, err := users.AuthWithPassword(t.Context(), "carol@example.com", "carolpass"); err != nil {
		t.Fatalf("AuthWithPassword(carol) error: %v", err)
	}
	if rec, ok := c.AuthStore().Record(); !ok || rec.Name != 7 {
		t.Fatalf("Record() = %+v, %v, want carol", rec, ok)
	}

	if _, err := users.AuthWithPassword(t.Context(), "alice@example.com", "secret123"); err == nil {
		t.Fatal("AuthWithPassword(alice) expected a decode error")
	}
	if c.AuthStore().RecordID() != aliceID {
		t.Errorf("RecordID() = %q, want %q", c.AuthStore().RecordID(), aliceID)
	}
	if rec, ok := c.AuthStore().Record(); ok {
		t.Errorf("Record() = %+v, want none after a mismatched sign-in", rec)
	}
}

func TestAuthWithPassword_SecondSignInReplacesRecord(t *testing.T) {
	srv := authServer(t)

	good := newClient(t, srv)
	users := good.Collection("users")
	if _, err := users.AuthWithPassword(t.Context(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("AuthWithPassword(alice) error: %v", err)
	}
	if _, err := users.AuthWithPassword(t.Context(), "bob@example.com", "hunter22"); err != nil {
		t.Fatalf("AuthWithPassword(bob) error: %v", err)
	}
	rec, _ := good.AuthStore().Record()
	if rec.Name != "Bob" || good.AuthStore().RecordID() != "bob000000000001" {
		t.Errorf("store holds %q/%q, want Bob", rec.Name, good.AuthStore().RecordID())
	}
}

func TestAuthWithPassword_MissingIdentity(t *testing.T) {
	// A 200 body the caller's type accepts but that carries no token.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"record":{"id":"x"}}`))
	}))
	defer ts.Close()

	c, _ := pocketbase.NewDefault(ts.URL)
	_, err := c.Collection("users").AuthWithPassword(t.Context(), "a", "b")
	var de *pocketbase.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
	if c.AuthStore().Token() != "" {
		t.Error("store should stay empty")
	}
}

func TestAuthStore_ExpiredToken(t *testing.T) {
	srv := authServer(t, fake.WithTokenTTL(-time.Minute))
	c := newClient(t, srv)

	if _, err := c.Collection("_superusers").AuthWithPassword(t.Context(), "root@example.com", "rootpass123"); err != nil {
		t.Fatalf("AuthWithPassword() error: %v", err)
	}
	store := c.AuthStore()
	if !token.IsExpired(store.Token()) {
		t.Fatal("token should be expired")
	}
	if store.IsValid() {
		t.Error("IsValid() = true for an expired token")
	}
	if !store.IsSuperuser() {
		t.Error("IsSuperuser() should not depend on expiry")
	}
}

func TestAuthWithPassword_Audit(t *testing.T) {
	srv := authServer(t)

	var events []audit.Event
	logger := audit.New(10, audit.WithHandler(func(e audit.Event) { events = append(events, e) }))
	c, _ := pocketbase.NewDefault(srv.URL(), pocketbase.WithAuditLogger(logger))

	users := c.Collection("users")
	_, _ = users.AuthWithPassword(t.Context(), "alice@example.com", "wrong")
	_, _ = users.AuthWithPassword(t.Context(), "alice@example.com", "secret123")
	_ = c.Close()

	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	if events[0].Result != audit.ResultFailure || events[0].Error == "" {
		t.Errorf("first event = %+v, want failure", events[0])
	}
	if events[1].Result != audit.ResultSuccess || events[1].RecordID != aliceID {
		t.Errorf("second event = %+v, want success for %s", events[1], aliceID)
	}
}
