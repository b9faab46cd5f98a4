package apitest

import (
	"encoding/base64"
	"sort"
	"sync"

	"github.com/fleetwave/fleetwave/internal/common/httpx"
)

// store is an ordered in-memory collection. Listing pages through items in
// id order using an opaque cursor, the way the real service does.
type store struct {
	mu    sync.RWMutex
	name  string
	items map[string]map[string]any
}

func newStore(name string) *store {
	return &store{
		name:  name,
		items: make(map[string]map[string]any),
	}
}

func (st *store) put(id string, item map[string]any) {
	if item == nil {
		item = make(map[string]any)
	}
	item["id"] = id

	st.mu.Lock()
	defer st.mu.Unlock()
	st.items[id] = item
}

func (st *store) get(id string) (map[string]any, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	item, ok := st.items[id]
	return item, ok
}

func (st *store) delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.items[id]; !ok {
		return false
	}
	delete(st.items, id)
	return true
}

func (st *store) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.items)
}

// page returns up to limit items after the cursor position and the cursor
// for the next page. An empty next cursor means the listing is complete.
func (st *store) page(cursor string, limit int) ([]map[string]any, string, error) {
	st.mu.RLock()
	ids := make([]string, 0, len(st.items))
	for id := range st.items {
		ids = append(ids, id)
	}
	st.mu.RUnlock()
	sort.Strings(ids)

	start := 0
	if cursor != "" {
		after, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", httpx.ErrInvalidRequest("invalid cursor")
		}
		start = sort.SearchStrings(ids, after)
		if start < len(ids) && ids[start] == after {
			start++
		}
	}

	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}

	items := make([]map[string]any, 0, end-start)
	st.mu.RLock()
	for _, id := range ids[start:end] {
		if item, ok := st.items[id]; ok {
			items = append(items, item)
		}
	}
	st.mu.RUnlock()

	next := ""
	if end < len(ids) && end > start {
		next = encodeCursor(ids[end-1])
	}
	return items, next, nil
}

func encodeCursor(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
