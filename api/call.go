package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrEthical07/goSession/transport"
)

// call sends req and decodes the envelope payload into out when out is non-nil.
// An envelope whose code is not 2xx is returned as a [*transport.Error].
func call(ctx context.Context, doer transport.Doer, req *transport.Request, out any) error {
	env, err := doer.Do(ctx, req)
	if err != nil {
		return err
	}
	if !env.OK() {
		return &transport.Error{Code: env.Code, Message: env.Message, Data: env.Data, Path: req.Path}
	}
	if out == nil {
		return nil
	}
	if err := env.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.Path, err)
	}
	return nil
}

func get(path string, query url.Values) *transport.Request {
	r := transport.NewRequest(http.MethodGet, path, nil)
	r.Query = query
	return r
}

// item joins a collection path and an identifier, keeping the trailing slash
// the backend's router expects.
func item(base string, id int64, rest ...string) string {
	p := strings.TrimRight(base, "/") + "/" + strconv.FormatInt(id, 10) + "/"
	for _, r := range rest {
		p += strings.Trim(r, "/") + "/"
	}
	return p
}

// decodeList accepts a bare array, a paginated {count, results} object, or a
// {data: [...]} wrapper.
func decodeList[T any](raw json.RawMessage) (Page[T], error) {
	var page Page[T]
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return page, nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(raw, &page.Results); err != nil {
			return page, err
		}
		page.Count = len(page.Results)
		return page, nil
	}
	var probe struct {
		Count    *int            `json:"count"`
		Next     string          `json:"next"`
		Previous string          `json:"previous"`
		Results  json.RawMessage `json:"results"`
		Data     json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return page, err
	}
	switch {
	case len(probe.Results) > 0:
		if err := json.Unmarshal(probe.Results, &page.Results); err != nil {
			return page, err
		}
	case len(probe.Data) > 0:
		return decodeList[T](probe.Data)
	}
	page.Next, page.Previous = probe.Next, probe.Previous
	page.Count = len(page.Results)
	if probe.Count != nil {
		page.Count = *probe.Count
	}
	return page, nil
}
