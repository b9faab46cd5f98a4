package fleetapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
)

// Paginated responses use the envelope
// {"items":[...],"pagination":{"nextCursor":"...","total":N}}. An absent or
// empty nextCursor ends the sequence.

// pageAggregate collects items across pages in fetch order.
type pageAggregate struct {
	items []json.RawMessage
	pages int
	total int64 // last total reported by the server, 0 when never reported
}

// payload reassembles the aggregated items into a single envelope so callers
// handle one page and many pages identically.
func (a *pageAggregate) payload() ([]byte, error) {
	combined := struct {
		Items      []json.RawMessage `json:"items"`
		Pagination struct {
			Total int64 `json:"total,omitempty"`
			Pages int   `json:"pages"`
		} `json:"pagination"`
	}{
		Items: a.items,
	}
	if combined.Items == nil {
		combined.Items = []json.RawMessage{}
	}
	combined.Pagination.Total = a.total
	combined.Pagination.Pages = a.pages
	return json.Marshal(combined)
}

// pageFailure signals a pagination sequence that ended without aggregating
// every page.
type pageFailure struct {
	res      *httpclient.RawResult // decisive non-success response, if any
	err      error                 // transport or refresh error, if any
	overflow bool                  // page cap reached with more pages pending
	pages    int                   // pages successfully fetched before the failure
}

// fetchPages walks the pagination sequence for the descriptor, giving each
// page its own retry budget. Item order follows fetch order. Without
// SkipPageLimit the walk stops at the page cap and reports overflow rather
// than returning a silently truncated result.
func (e *Executor) fetchPages(ctx context.Context, desc Descriptor, opts httpclient.RequestOptions, refreshed *bool) (*pageAggregate, int, *pageFailure) {
	agg := &pageAggregate{}
	attempts := 0
	cursor := ""

	for {
		pageOpts := opts
		pageOpts.QueryParams = make(map[string]string, len(opts.QueryParams)+2)
		for k, v := range opts.QueryParams {
			pageOpts.QueryParams[k] = v
		}
		if _, ok := pageOpts.QueryParams["limit"]; !ok && e.engine.PageSize > 0 {
			pageOpts.QueryParams["limit"] = strconv.Itoa(e.engine.PageSize)
		}
		if cursor != "" {
			pageOpts.QueryParams["cursor"] = cursor
		}

		res, n, err := e.doAuthRetry(ctx, pageOpts, desc.SkipSessionCheck, refreshed)
		attempts += n
		if err != nil {
			return agg, attempts, &pageFailure{err: err, pages: agg.pages}
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return agg, attempts, &pageFailure{res: res, pages: agg.pages}
		}

		items := gjson.GetBytes(res.Body, "items")
		items.ForEach(func(_, item gjson.Result) bool {
			agg.items = append(agg.items, json.RawMessage(item.Raw))
			return true
		})
		agg.pages++
		if total := gjson.GetBytes(res.Body, "pagination.total"); total.Exists() {
			agg.total = total.Int()
		}

		cursor = gjson.GetBytes(res.Body, "pagination.nextCursor").String()
		if cursor == "" {
			log.Ctx(ctx).Debug().Int("pages", agg.pages).Int("items", len(agg.items)).Msg("pagination complete")
			return agg, attempts, nil
		}

		if !desc.SkipPageLimit && agg.pages >= e.engine.MaxPages {
			return agg, attempts, &pageFailure{overflow: true, pages: agg.pages}
		}
	}
}

// failure converts a pageFailure into the outcome-level Failure, naming the
// page position so a truncated listing is diagnosable.
func (pf *pageFailure) failure(maxPages int) *Failure {
	if pf.overflow {
		return &Failure{
			Code: CodePaginationOverflow,
			Message: fmt.Sprintf("pagination exceeded %d pages after %d pages fetched; narrow the query or allow unbounded listing",
				maxPages, pf.pages),
		}
	}
	if pf.res != nil {
		f := failureFromResponse(pf.res)
		f.Message = fmt.Sprintf("page %d: %s", pf.pages+1, f.Message)
		return f
	}
	return nil
}
