package fake

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	pocketbase "github.com/chimerakang/pocketbase-go"
)

var errUnknownCollection = errors.New("fake: unknown collection")

// Error messages of the real backend.
const (
	msgMissingCollection = "Missing collection context."
	msgNotFound          = "The requested resource wasn't found."
	msgAuthFailed        = "Failed to authenticate."
	msgUnauthorized      = "The request requires valid record authorization token."
	msgSuperuserOnly     = "The request requires valid superuser authorization token."
	msgBadRequest        = "Something went wrong while processing your request."
	msgInvalidFilter     = "Something went wrong while processing your request. Invalid filter parameters."
)

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(s.recordRequest, s.delay)

	r.GET(pocketbase.CollectionsPath, s.listCollections)

	g := r.Group(pocketbase.CollectionsPath + "/:collection")
	g.POST("/auth-with-password", s.authWithPassword)
	g.GET("/records", s.guard, s.listRecords)
	g.POST("/records", s.guard, s.createRecord)
	g.GET("/records/:id", s.guard, s.viewRecord)
	g.PATCH("/records/:id", s.guard, s.updateRecord)
	g.DELETE("/records/:id", s.guard, s.deleteRecord)

	r.NoRoute(func(c *gin.Context) { abort(c, http.StatusNotFound, msgNotFound) })
	return r
}

func (s *Server) recordRequest(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		EscapedPath:   c.Request.URL.EscapedPath(),
		RawQuery:      c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) delay(c *gin.Context) {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-c.Request.Context().Done():
		}
	}
	c.Next()
}

// abort writes the backend error shape.
func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": status, "message": message, "data": gin.H{}})
}

// claims returns the verified claims of the request's bearer token, if any.
func (s *Server) claims(c *gin.Context) (jwt.MapClaims, bool) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, false
	}
	claims, err := s.verify(raw)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// guard rejects unauthenticated requests to protected collections.
func (s *Server) guard(c *gin.Context) {
	s.mu.RLock()
	col := s.lookup(c.Param("collection"))
	s.mu.RUnlock()
	if col == nil {
		abort(c, http.StatusNotFound, msgMissingCollection)
		return
	}
	if col.protected {
		if _, ok := s.claims(c); !ok {
			abort(c, http.StatusUnauthorized, msgUnauthorized)
			return
		}
	}
	c.Next()
}

func (s *Server) listCollections(c *gin.Context) {
	if s.adminCollections {
		claims, ok := s.claims(c)
		if !ok || claims["collectionId"] != pocketbase.SuperusersCollectionID {
			abort(c, http.StatusUnauthorized, msgSuperuserOnly)
			return
		}
	}

	s.mu.RLock()
	items := make([]gin.H, 0, len(s.collections))
	for _, name := range s.names() {
		col := s.collections[name]
		typ := "base"
		if col.auth {
			typ = "auth"
		}
		items = append(items, gin.H{"id": col.id, "name": col.name, "type": typ, "system": strings.HasPrefix(col.name, "_")})
	}
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"page":       1,
		"perPage":    len(items),
		"totalItems": len(items),
		"totalPages": 1,
		"items":      items,
	})
}

func (s *Server) listRecords(c *gin.Context) {
	page := intQuery(c, "page", 1)
	perPage := intQuery(c, "perPage", DefaultPerPage)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	match, err := parseFilter(c.Query("filter"))
	if err != nil {
		abort(c, http.StatusBadRequest, msgInvalidFilter)
		return
	}

	s.mu.RLock()
	col := s.lookup(c.Param("collection"))
	matched := make([]map[string]any, 0, len(col.order))
	for _, id := range col.order {
		if rec := col.records[id]; match(rec) {
			matched = append(matched, copyFields(rec))
		}
	}
	s.mu.RUnlock()

	sortRecords(matched, c.Query("sort"))

	items := []map[string]any{}
	if start := (page - 1) * perPage; start < len(matched) {
		end := min(start+perPage, len(matched))
		items = matched[start:end]
	}

	totalItems, totalPages := len(matched), (len(matched)+perPage-1)/perPage
	if skip := c.Query("skipTotal"); skip == "1" || skip == "true" {
		totalItems, totalPages = -1, -1
	}

	c.JSON(http.StatusOK, gin.H{
		"page":       page,
		"perPage":    perPage,
		"totalItems": totalItems,
		"totalPages": totalPages,
		"items":      items,
	})
}

func (s *Server) viewRecord(c *gin.Context) {
	s.mu.RLock()
	rec, ok := s.lookup(c.Param("collection")).records[c.Param("id")]
	if ok {
		rec = copyFields(rec)
	}
	s.mu.RUnlock()

	if !ok {
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) createRecord(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, msgBadRequest)
		return
	}
	password, _ := body["password"].(string)
	delete(body, "password")
	delete(body, "passwordConfirm")
	for _, k := range []string{"collectionId", "collectionName", "created", "updated"} {
		delete(body, k)
	}

	s.mu.Lock()
	col := s.lookup(c.Param("collection"))
	if id, _ := body["id"].(string); id != "" {
		if _, exists := col.records[id]; exists {
			s.mu.Unlock()
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"status":  http.StatusBadRequest,
				"message": "Failed to create record.",
				"data":    gin.H{"id": gin.H{"code": "validation_invalid_id", "message": "The model id is invalid or already exists."}},
			})
			return
		}
	}
	rec := copyFields(s.insert(col, body, password))
	s.mu.Unlock()

	c.JSON(http.StatusOK, rec)
}

func (s *Server) updateRecord(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, http.StatusBadRequest, msgBadRequest)
		return
	}

	s.mu.Lock()
	col := s.lookup(c.Param("collection"))
	id := c.Param("id")
	rec, ok := col.records[id]
	if !ok {
		s.mu.Unlock()
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	if password, _ := body["password"].(string); password != "" && col.auth {
		col.passwords[id] = password
	}
	for k, v := range body {
		switch k {
		case "id", "collectionId", "collectionName", "created", "updated", "password", "passwordConfirm", "oldPassword":
			continue
		}
		rec[k] = v
	}
	rec["updated"] = s.now().UTC().Format(timeLayout)
	out := copyFields(rec)
	s.mu.Unlock()

	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteRecord(c *gin.Context) {
	s.mu.Lock()
	col := s.lookup(c.Param("collection"))
	id := c.Param("id")
	_, ok := col.records[id]
	if ok {
		delete(col.records, id)
		delete(col.passwords, id)
		for i, v := range col.order {
			if v == id {
				col.order = append(col.order[:i], col.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if !ok {
		abort(c, http.StatusNotFound, msgNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) authWithPassword(c *gin.Context) {
	var body struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Identity == "" || body.Password == "" {
		abort(c, http.StatusBadRequest, msgAuthFailed)
		return
	}

	s.mu.RLock()
	col := s.lookup(c.Param("collection"))
	if col == nil {
		s.mu.RUnlock()
		abort(c, http.StatusNotFound, msgMissingCollection)
		return
	}
	var rec map[string]any
	id, found := col.findByEmail(body.Identity)
	if found && col.auth && col.passwords[id] == body.Password {
		rec = copyFields(col.records[id])
	}
	colID := col.id
	s.mu.RUnlock()

	if rec == nil {
		abort(c, http.StatusBadRequest, msgAuthFailed)
		return
	}

	tok, err := s.sign(colID, id, s.tokenTTL)
	if err != nil {
		abort(c, http.StatusInternalServerError, msgBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "record": rec})
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
