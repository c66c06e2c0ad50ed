package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

const MaxLimit = 250

// Pagination is bound from the query string. A zero limit means no paging.
type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

func (p Pagination) Validate() error {
	if p.Limit < 0 || p.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 0 and %d", MaxLimit)
	}
	return nil
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// EncodeID and DecodeID wrap numeric primary keys in an opaque cursor.
func EncodeID(id uint64) string {
	s, _ := EncodeCursor(Cursor{ID: strconv.FormatUint(id, 10)})
	return s
}

func DecodeID(data string) (uint64, error) {
	c, err := DecodeCursor(data)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(c.ID, 10, 64)
}

// BuildCursorPageInfo expects up to limit+1 rows and returns the page trimmed to limit.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) ([]*T, *PageInfo) {
	if len(data) == 0 || limit <= 0 {
		return data, &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	pageInfo := &PageInfo{HasMore: hasMore}
	if hasMore {
		pageInfo.NextCursor = extractCursor(data[len(data)-1])
	}

	return data, pageInfo
}
