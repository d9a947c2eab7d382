package testserver

import (
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

// collection is a generic CRUD store keyed by integer id.
type collection struct {
	kind string

	mu      sync.Mutex
	nextID  int64
	records map[int64]map[string]any
}

func newCollection(kind string) *collection {
	return &collection{kind: kind, records: make(map[int64]map[string]any)}
}

func (c *collection) insert(rec map[string]any) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make(map[string]any, len(rec)+1)
	for k, v := range rec {
		cp[k] = v
	}
	if id, ok := asID(cp["id"]); ok {
		if id > c.nextID {
			c.nextID = id
		}
	} else {
		c.nextID++
		cp["id"] = c.nextID
	}
	id, _ := asID(cp["id"])
	cp["id"] = id
	c.records[id] = cp
	return clone(cp)
}

func clone(rec map[string]any) map[string]any {
	cp := make(map[string]any, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}

func (c *collection) notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "No " + c.kind + " matches the given query."})
}

func (c *collection) get(id int64) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return nil, false
	}
	return clone(rec), true
}

func (c *collection) patch(id int64, fields map[string]any, replace bool) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[id]
	if !ok {
		return nil, false
	}
	if replace {
		rec = map[string]any{"id": id}
	}
	for k, v := range fields {
		if k != "id" {
			rec[k] = v
		}
	}
	c.records[id] = rec
	return clone(rec), true
}

// list returns records whose fields equal every filter value, ordered by id.
func (c *collection) list(filter map[string]string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		rec := c.records[id]
		if matches(rec, filter) {
			out = append(out, clone(rec))
		}
	}
	return out
}

func matches(rec map[string]any, filter map[string]string) bool {
	for k, want := range filter {
		v, ok := rec[k]
		if !ok {
			return false
		}
		switch t := v.(type) {
		case string:
			if t != want {
				return false
			}
		default:
			if id, ok := asID(v); !ok || itoa(id) != want {
				return false
			}
		}
	}
	return true
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func asID(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	}
	return 0, false
}

// routes mounts list/get/create/update/patch/delete. extra registers
// collection-level actions before the id routes.
func (c *collection) routes(extra func(chi.Router)) func(chi.Router) {
	return func(r chi.Router) {
		if extra != nil {
			extra(r)
		}
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			filter := make(map[string]string)
			for k, vs := range req.URL.Query() {
				if len(vs) > 0 && k != "page" {
					filter[k] = vs[0]
				}
			}
			results := c.list(filter)
			writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results})
		})
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body map[string]any
			if err := readJSON(req, &body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed body"})
				return
			}
			delete(body, "id")
			writeJSON(w, http.StatusCreated, c.insert(body))
		})
		r.Get("/{id}/", func(w http.ResponseWriter, req *http.Request) {
			id, _ := idParam(req, "id")
			rec, ok := c.get(id)
			if !ok {
				c.notFound(w)
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})
		update := func(replace bool) http.HandlerFunc {
			return func(w http.ResponseWriter, req *http.Request) {
				id, _ := idParam(req, "id")
				var body map[string]any
				if err := readJSON(req, &body); err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed body"})
					return
				}
				rec, ok := c.patch(id, body, replace)
				if !ok {
					c.notFound(w)
					return
				}
				writeJSON(w, http.StatusOK, rec)
			}
		}
		r.Put("/{id}/", update(true))
		r.Patch("/{id}/", update(false))
		r.Delete("/{id}/", func(w http.ResponseWriter, req *http.Request) {
			id, _ := idParam(req, "id")
			c.mu.Lock()
			_, ok := c.records[id]
			delete(c.records, id)
			c.mu.Unlock()
			if !ok {
				c.notFound(w)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
