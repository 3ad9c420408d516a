package pocketbase

import (
	"context"
	"net/http"
)

// GetList fetches one page of records of the collection s is bound to.
func GetList[E any, R any](ctx context.Context, s *RecordService[R], opts ListOptions) (*ListResponse[E], error) {
	resp, err := s.send(ctx, http.MethodGet, s.recordsPath()+opts.Encode(), nil)
	if err != nil {
		return nil, err
	}
	page, err := decode[ListResponse[E]](resp)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetOne fetches a single record by id. A missing id is reported by the
// backend as a 404 *HTTPError.
func GetOne[E any, R any](ctx context.Context, s *RecordService[R], id string, view *ViewOptions) (E, error) {
	resp, err := s.send(ctx, http.MethodGet, s.recordPath(id)+view.Encode(), nil)
	if err != nil {
		var zero E
		return zero, err
	}
	return decode[E](resp)
}

// GetFullList fetches every record of the collection, in server order, by
// requesting pages of FullListBatchSize until a short page is returned.
// Pages are fetched one at a time and the first error aborts the walk.
func GetFullList[E any, R any](ctx context.Context, s *RecordService[R]) ([]E, error) {
	var items []E
	for page := 1; ; page++ {
		list, err := GetList[E](ctx, s, PaginatedAndSkip(page, FullListBatchSize))
		if err != nil {
			return nil, err
		}
		s.client.t.metrics.RecordFullListPage(s.collection)

		items = append(items, list.Items...)
		if len(list.Items) == 0 || len(list.Items) < list.PerPage {
			break
		}
	}
	if items == nil {
		items = []E{}
	}
	return items, nil
}

// GetFirstListItem returns the first record matching filter. When nothing
// matches, it fails with a 404 *HTTPError, like GetOne for a missing id.
func GetFirstListItem[E any, R any](ctx context.Context, s *RecordService[R], filter string, view *ViewOptions) (E, error) {
	var zero E
	list, err := GetList[E](ctx, s, ListOptionsFromView(1, 1, filter, view))
	if err != nil {
		return zero, err
	}
	if len(list.Items) == 0 {
		return zero, &HTTPError{Status: http.StatusNotFound, Message: errNoMatch}
	}
	return list.Items[0], nil
}

// Create sends body as a new record and returns the stored record.
func Create[E any, R any](ctx context.Context, s *RecordService[R], body any, view *ViewOptions) (E, error) {
	resp, err := s.send(ctx, http.MethodPost, s.recordsPath()+view.Encode(), body)
	if err != nil {
		var zero E
		return zero, err
	}
	return decode[E](resp)
}

// Update patches the record with the given id and returns the stored record.
// When the record is the one the client is authenticated as, the AuthStore
// record is replaced with the response, without re-authenticating.
func Update[E any, R any](ctx context.Context, s *RecordService[R], id string, body any, view *ViewOptions) (E, error) {
	resp, err := s.send(ctx, http.MethodPatch, s.recordPath(id)+view.Encode(), body)
	if err != nil {
		var zero E
		return zero, err
	}
	s.syncAuthRecord(ctx, resp)
	return decode[E](resp)
}
