package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MrEthical07/goSession/transport"
)

const (
	pathSchedules     = "/schedules/"
	pathCabinGrouping = "/schedules/cabin-grouping-with-info/"
	pathVesselInfo    = "/vessel-info/"
	pathVesselBulk    = "/vessel-info/bulk-update/"
)

// ErrMissingPort is returned when a port-pair query lacks a port code.
var ErrMissingPort = errors.New("api: port of loading and port of discharge are required")

// ErrMissingID is returned for bulk items without an id.
var ErrMissingID = errors.New("api: item id is required")

// editableVesselFields are the only vessel-info fields the console may change.
var editableVesselFields = []string{"price", "gp_20", "hq_40", "cut_off_time"}

// Schedule is a sailing.
type Schedule struct {
	ID      int64  `json:"id"`
	PolCd   string `json:"polCd,omitempty"`
	PodCd   string `json:"podCd,omitempty"`
	Vessel  string `json:"vessel,omitempty"`
	Voyage  string `json:"voyage,omitempty"`
	Carrier string `json:"carriercd,omitempty"`
	ETD     string `json:"etd,omitempty"`
	ETA     string `json:"eta,omitempty"`
}

// VesselInfo is the editable pricing record attached to a schedule.
type VesselInfo struct {
	ID         int64           `json:"id"`
	ScheduleID int64           `json:"schedule_id,omitempty"`
	Price      json.RawMessage `json:"price,omitempty"`
	GP20       json.RawMessage `json:"gp_20,omitempty"`
	HQ40       json.RawMessage `json:"hq_40,omitempty"`
	CutOffTime string          `json:"cut_off_time,omitempty"`
}

// Schedules reads sailings.
type Schedules struct {
	doer transport.Doer
	*Resource[Schedule]
}

func newSchedules(doer transport.Doer) *Schedules {
	return &Schedules{doer: doer, Resource: NewResource[Schedule](doer, pathSchedules)}
}

// CabinGrouping returns the cabin grouping with vessel info for a port pair.
// The payload shape is owned by the backend and returned undecoded.
func (s *Schedules) CabinGrouping(ctx context.Context, polCd, podCd string) (json.RawMessage, error) {
	if polCd == "" || podCd == "" {
		return nil, ErrMissingPort
	}
	var raw json.RawMessage
	q := url.Values{"polCd": {polCd}, "podCd": {podCd}}
	if err := call(ctx, s.doer, get(pathCabinGrouping, q), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Vessels edits vessel info.
type Vessels struct {
	doer transport.Doer
}

// BySchedule lists the vessel-info records of a schedule.
func (v *Vessels) BySchedule(ctx context.Context, scheduleID int64) ([]VesselInfo, error) {
	var raw json.RawMessage
	q := url.Values{"schedule_id": {strconv.FormatInt(scheduleID, 10)}}
	if err := call(ctx, v.doer, get(pathVesselInfo, q), &raw); err != nil {
		return nil, err
	}
	page, err := decodeList[VesselInfo](raw)
	return page.Results, err
}

// VesselInfoID returns the id of the first vessel-info record of a schedule.
// ok is false when the schedule has none.
func (v *Vessels) VesselInfoID(ctx context.Context, scheduleID int64) (id int64, ok bool, err error) {
	infos, err := v.BySchedule(ctx, scheduleID)
	if err != nil || len(infos) == 0 {
		return 0, false, err
	}
	return infos[0].ID, true, nil
}

// Update patches a vessel-info record. Fields outside price, gp_20, hq_40
// and cut_off_time are dropped before sending.
func (v *Vessels) Update(ctx context.Context, id int64, fields map[string]any) (*VesselInfo, error) {
	var out VesselInfo
	req := transport.NewRequest(http.MethodPatch, item(pathVesselInfo, id), editable(fields))
	if err := call(ctx, v.doer, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BulkUpdate patches several records in one call. Each item must carry an
// "id"; other non-editable fields are dropped.
func (v *Vessels) BulkUpdate(ctx context.Context, items []map[string]any) (json.RawMessage, error) {
	updates := make([]map[string]any, 0, len(items))
	for _, it := range items {
		id, ok := it["id"]
		if !ok || id == nil {
			return nil, ErrMissingID
		}
		u := editable(it)
		u["id"] = id
		updates = append(updates, u)
	}
	var raw json.RawMessage
	req := transport.NewRequest(http.MethodPost, pathVesselBulk, map[string]any{"updates": updates})
	if err := call(ctx, v.doer, req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func editable(fields map[string]any) map[string]any {
	out := make(map[string]any, len(editableVesselFields))
	for _, f := range editableVesselFields {
		if val, ok := fields[f]; ok {
			out[f] = val
		}
	}
	return out
}
