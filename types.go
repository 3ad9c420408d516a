package pocketbase

// BaseRecord holds the system fields present on every record returned by the
// backend. Embed it in record types used with this package:
//
//	type Article struct {
//	    pocketbase.BaseRecord
//	    Name  string  `json:"name"`
//	    Price float64 `json:"price"`
//	}
type BaseRecord struct {
	ID             string `json:"id"`
	CollectionID   string `json:"collectionId"`
	CollectionName string `json:"collectionName"`
}

// DefaultAuthRecord is the auth record type used by NewDefault.
type DefaultAuthRecord struct {
	BaseRecord
	Email           string `json:"email"`
	Verified        bool   `json:"verified"`
	EmailVisibility bool   `json:"emailVisibility"`
	Created         string `json:"created"`
	Updated         string `json:"updated"`
	// Name is empty for superusers, whose collection has no name field.
	Name string `json:"name,omitempty"`
}

// ListResponse is one page of records.
type ListResponse[E any] struct {
	Items   []E `json:"items"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	// TotalItems and TotalPages are -1 when the request set skipTotal.
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// ResponseError is the body the backend sends on failure.
type ResponseError struct {
	Message string         `json:"message"`
	Status  int            `json:"status"`
	Data    map[string]any `json:"data,omitempty"`
}

// AuthResponse is the body returned by auth-with-password.
type AuthResponse[R any] struct {
	Token  string `json:"token"`
	Record R      `json:"record"`
}

type authPayload struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

type recordIDOnly struct {
	ID string `json:"id"`
}
