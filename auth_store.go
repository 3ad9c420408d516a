package pocketbase

import (
	"encoding/json"
	"sync"

	"github.com/chimerakang/pocketbase-go/token"
)

const (
	// SuperusersCollectionName is the backend's built-in admin collection.
	SuperusersCollectionName = "_superusers"
	// SuperusersCollectionID is the fixed id the backend assigns to the
	// superusers collection. It is deployment specific.
	SuperusersCollectionID = "pbc_3142635823"
)

// AuthStore holds the current authentication state of a Client. One store is
// shared by every RecordService derived from the same client. It is written
// only by AuthWithPassword and by an Update of the authenticated record.
type AuthStore[R any] struct {
	mu sync.Mutex

	token          string
	record         R
	hasRecord      bool
	collectionID   string
	collectionName string
	recordID       string
}

// Token returns the current bearer token, or "" when not authenticated.
func (s *AuthStore[R]) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Record returns a copy of the authenticated record.
func (s *AuthStore[R]) Record() (R, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record, s.hasRecord
}

// CollectionID returns the id of the collection the session belongs to.
func (s *AuthStore[R]) CollectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectionID
}

// CollectionName returns the name of the collection the session belongs to.
func (s *AuthStore[R]) CollectionName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectionName
}

// RecordID returns the id of the authenticated record.
func (s *AuthStore[R]) RecordID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordID
}

// IsValid reports whether the store is fully populated and its token has not
// expired. Undecodable tokens count as expired.
func (s *AuthStore[R]) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.populated() && !token.IsExpired(s.token)
}

// IsSuperuser reports whether the session was issued by the superusers
// collection. The token is not required to be unexpired.
func (s *AuthStore[R]) IsSuperuser() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.populated() {
		return false
	}
	p, err := token.Decode(s.token)
	if err != nil {
		return false
	}
	return p.Type == token.TypeAuth &&
		(s.collectionName == SuperusersCollectionName || p.CollectionID == SuperusersCollectionID)
}

// populated requires s.mu.
func (s *AuthStore[R]) populated() bool {
	return s.token != "" && s.hasRecord && s.collectionID != "" && s.collectionName != ""
}

// signIn stores the identity part of an auth response. record is nil when
// the caller's record type could not be decoded from the response.
func (s *AuthStore[R]) signIn(tok, collectionID, collectionName, recordID string, record *R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	s.collectionID = collectionID
	s.collectionName = collectionName
	s.recordID = recordID
	if record != nil {
		s.record = *record
		s.hasRecord = true
	} else {
		var zero R
		s.record = zero
		s.hasRecord = false
	}
}

// syncRecord replaces the stored record with body when body is the
// authenticated record of this session, as returned by an update on
// collectionIDOrName. It reports whether the store changed.
func (s *AuthStore[R]) syncRecord(collectionIDOrName string, body []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ownsCollection(collectionIDOrName) {
		return false
	}
	var ref recordIDOnly
	if err := json.Unmarshal(body, &ref); err != nil || ref.ID == "" || ref.ID != s.recordID {
		return false
	}
	var record R
	if err := json.Unmarshal(body, &record); err != nil {
		return false
	}
	s.recordID = ref.ID
	s.record = record
	s.hasRecord = true
	return true
}

// ownsCollection reports whether the session belongs to the collection
// referenced by idOrName. Requires s.mu.
func (s *AuthStore[R]) ownsCollection(idOrName string) bool {
	return s.populated() && (idOrName == s.collectionID || idOrName == s.collectionName)
}
