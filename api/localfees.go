package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/MrEthical07/goSession/transport"
)

const (
	pathLocalFees     = "/api/local-fees/local-fees/"
	pathLocalFeeQuery = "/api/local-fees/local-fees/query/"
)

// LocalFee is one port charge. Prices are decimal strings; a nil price means
// the fee is not charged per that unit.
type LocalFee struct {
	ID           int64   `json:"id,omitempty"`
	Name         string  `json:"name"`
	UnitName     string  `json:"unit_name,omitempty"`
	Price20GP    *string `json:"price_20gp"`
	Price40GP    *string `json:"price_40gp"`
	Price40HQ    *string `json:"price_40hq"`
	PricePerBill *string `json:"price_per_bill"`
	Currency     string  `json:"currency,omitempty"`
	PolCd        string  `json:"polCd,omitempty"`
	PodCd        string  `json:"podCd,omitempty"`
	Carrier      string  `json:"carriercd,omitempty"`
}

// FeeRow is a row of the display-formatted query endpoint, whose column
// names are chosen by the backend.
type FeeRow map[string]any

// LocalFeeChange is one pending edit from the fee grid.
type LocalFeeChange struct {
	ID    int64
	IsNew bool
	Data  LocalFee
}

// BatchItem is the outcome of one change in [LocalFees.BatchSave].
type BatchItem struct {
	Success bool      `json:"success"`
	Data    *LocalFee `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BatchResult summarises a batch save.
type BatchResult struct {
	Results      []BatchItem `json:"results"`
	SuccessCount int         `json:"successCount"`
	ErrorCount   int         `json:"errorCount"`
}

// LocalFees manages port charges.
type LocalFees struct {
	doer transport.Doer
	*Resource[LocalFee]
}

func newLocalFees(doer transport.Doer) *LocalFees {
	return &LocalFees{doer: doer, Resource: NewResource[LocalFee](doer, pathLocalFees)}
}

// Query returns the display-formatted fees for a port pair, optionally
// narrowed to one carrier.
func (l *LocalFees) Query(ctx context.Context, polCd, podCd, carrier string) ([]FeeRow, error) {
	if polCd == "" || podCd == "" {
		return nil, ErrMissingPort
	}
	q := url.Values{"polCd": {polCd}, "podCd": {podCd}}
	if carrier != "" {
		q.Set("carriercd", carrier)
	}
	var raw json.RawMessage
	if err := call(ctx, l.doer, get(pathLocalFeeQuery, q), &raw); err != nil {
		return nil, err
	}
	page, err := decodeList[FeeRow](raw)
	return page.Results, err
}

// ForPorts lists the fees of a port pair.
func (l *LocalFees) ForPorts(ctx context.Context, polCd, podCd string) (Page[LocalFee], error) {
	return l.List(ctx, url.Values{"polCd": {polCd}, "podCd": {podCd}})
}

// BatchSave applies changes in order. A failed change does not stop the
// batch; its error text is kept in the result. A cancelled ctx fails every
// remaining change.
func (l *LocalFees) BatchSave(ctx context.Context, changes []LocalFeeChange) BatchResult {
	res := BatchResult{Results: make([]BatchItem, 0, len(changes))}
	for _, ch := range changes {
		var (
			fee *LocalFee
			err error
		)
		if err = ctx.Err(); err == nil {
			if ch.IsNew {
				fee, err = l.Create(ctx, ch.Data)
			} else {
				fee, err = l.Update(ctx, ch.ID, ch.Data)
			}
		}
		if err != nil {
			res.Results = append(res.Results, BatchItem{Error: errorText(err)})
			res.ErrorCount++
			continue
		}
		res.Results = append(res.Results, BatchItem{Success: true, Data: fee})
		res.SuccessCount++
	}
	return res
}

func errorText(err error) string {
	if msg := transport.MessageOf(err); msg != "" {
		return msg
	}
	return err.Error()
}
