package pocketbase

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/singleflight"
)

// CollectionsPath is the base path of the collections metadata API.
const CollectionsPath = "/api/collections"

// CollectionService handles requests about the collections themselves
// rather than their records.
type CollectionService struct {
	t  *transport
	sf singleflight.Group
}

// BaseCrudPath returns the path every collections request goes through.
func (s *CollectionService) BaseCrudPath() string { return CollectionsPath }

// GetFullList fetches the collections metadata and returns the raw response
// body. No Authorization header is sent, so backends that restrict this
// endpoint to superusers answer with an error body, which is returned as is.
// Concurrent calls share a single in-flight request; a caller whose ctx ends
// returns early without cancelling the request for the others.
func (s *CollectionService) GetFullList(ctx context.Context) (string, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(CollectionsPath, func() (interface{}, error) {
		resp, err := s.t.do(shared, http.MethodGet, CollectionsPath, "_collections", "", nil)
		if err != nil {
			return "", err
		}
		return string(resp.body), nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("pocketbase/collections: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("pocketbase/collections: %w", res.Err)
		}
		return res.Val.(string), nil
	}
}
