package pocketbase

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/chimerakang/pocketbase-go/audit"
)

// FullListBatchSize is the page size used by GetFullList.
const FullListBatchSize = 1000

// RecordService is bound to one collection and shares the authentication
// state of the Client it came from.
type RecordService[R any] struct {
	client     *Client[R]
	collection string
}

// CollectionIDOrName returns the collection the service is bound to.
func (s *RecordService[R]) CollectionIDOrName() string { return s.collection }

func (s *RecordService[R]) basePath() string {
	return CollectionsPath + "/" + url.PathEscape(s.collection)
}

func (s *RecordService[R]) recordsPath() string {
	return s.basePath() + "/records"
}

func (s *RecordService[R]) recordPath(id string) string {
	return s.recordsPath() + "/" + url.PathEscape(id)
}

// send issues an authorized request: the current token, valid or not, is
// attached when present. A token carried by ctx takes precedence.
func (s *RecordService[R]) send(ctx context.Context, method, path string, payload any) (*response, error) {
	bearer := TokenFromContext(ctx)
	if bearer == "" {
		bearer = s.client.auth.Token()
	}
	return s.client.t.do(ctx, method, path, s.collection, bearer, payload)
}

// Delete removes the record with the given id. Any 2xx status is success,
// whatever the body.
func (s *RecordService[R]) Delete(ctx context.Context, id string) error {
	resp, err := s.send(ctx, http.MethodDelete, s.recordPath(id), nil)
	if err == nil && !resp.ok() {
		err = resp.err()
	}

	event := audit.Event{Action: audit.ActionRecordDelete, Collection: s.collection, RecordID: id, Result: audit.ResultSuccess}
	if err != nil {
		event.Result = audit.ResultFailure
		event.Error = err.Error()
	}
	s.client.audit.Log(event)
	return err
}

// AuthWithPassword authenticates a record of this collection with an
// identity (usually an email) and a password.
//
// The response is decoded twice. When its identity part (token, record id,
// collection id and name) decodes, the AuthStore is updated even if the
// record does not decode as R; in that case the decoding error is returned
// and any record kept from an earlier sign-in is cleared, so the store never
// pairs a new token with another session's record. Callers must therefore
// not infer the store's state from the returned error alone.
func (s *RecordService[R]) AuthWithPassword(ctx context.Context, identity, password string) (*AuthResponse[R], error) {
	logger := s.client.t.logger
	resp, err := s.client.t.do(ctx, http.MethodPost, s.basePath()+"/auth-with-password", s.collection, "",
		authPayload{Identity: identity, Password: password})
	if err != nil {
		s.recordAuth(identity, "", audit.ResultFailure, err)
		return nil, err
	}

	ident, identErr := decode[AuthResponse[BaseRecord]](resp)
	full, fullErr := decode[AuthResponse[R]](resp)

	identOK := identErr == nil && ident.Token != "" &&
		ident.Record.ID != "" && ident.Record.CollectionID != "" && ident.Record.CollectionName != ""
	if identOK {
		var record *R
		if fullErr == nil {
			record = &full.Record
		}
		s.client.auth.signIn(ident.Token, ident.Record.CollectionID, ident.Record.CollectionName, ident.Record.ID, record)
		logger.InfoContext(ctx, "authenticated",
			"collection", ident.Record.CollectionName,
			"record_id", ident.Record.ID,
			"record_decoded", fullErr == nil,
		)
	}

	switch {
	case fullErr != nil && identOK:
		logger.WarnContext(ctx, "auth record does not match the requested type",
			"collection", s.collection, "error", fullErr)
		s.recordAuth(identity, ident.Record.ID, audit.ResultPartial, fullErr)
		return nil, fullErr
	case fullErr != nil:
		s.recordAuth(identity, "", audit.ResultFailure, fullErr)
		return nil, fullErr
	case !identOK:
		// The caller's type accepted a body that carries no usable identity.
		err := &DecodeError{Status: resp.status, Body: string(resp.body), Err: identErrOrMissing(identErr)}
		s.recordAuth(identity, "", audit.ResultFailure, err)
		return nil, err
	}

	s.recordAuth(identity, ident.Record.ID, audit.ResultSuccess, nil)
	return &full, nil
}

func identErrOrMissing(err error) error {
	if err != nil {
		return err
	}
	return errors.New("auth response has no token or record identity")
}

func (s *RecordService[R]) recordAuth(identity, recordID, result string, err error) {
	s.client.t.metrics.RecordAuthAttempt(s.collection, result)
	event := audit.Event{
		Action:     audit.ActionAuthWithPassword,
		Collection: s.collection,
		Identity:   identity,
		RecordID:   recordID,
		Result:     result,
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.client.audit.Log(event)
}

// syncAuthRecord propagates an updated record to the AuthStore when it is the
// authenticated record.
func (s *RecordService[R]) syncAuthRecord(ctx context.Context, resp *response) {
	if !resp.ok() || !s.client.auth.syncRecord(s.collection, resp.body) {
		return
	}
	recordID := s.client.auth.RecordID()
	s.client.t.logger.InfoContext(ctx, "auth record refreshed", "collection", s.collection, "record_id", recordID)
	s.client.t.metrics.RecordAuthSync(s.collection)
	s.client.audit.Log(audit.Event{
		Action:     audit.ActionAuthRecordSync,
		Collection: s.collection,
		RecordID:   recordID,
		Result:     audit.ResultSuccess,
	})
}
