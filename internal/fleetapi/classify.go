package fleetapi

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
)

// Error responses use the envelope {"error":{"code":"...","message":"..."}}.
// Some endpoints return a bare {"message":"..."}; both forms are accepted.

// responseMessage extracts the richest error description the response
// offers: error.message, then message, then error.code, then the status line.
func responseMessage(res *httpclient.RawResult) string {
	if len(res.Body) > 0 && gjson.ValidBytes(res.Body) {
		if m := gjson.GetBytes(res.Body, "error.message"); m.Exists() && m.String() != "" {
			return m.String()
		}
		if m := gjson.GetBytes(res.Body, "message"); m.Exists() && m.String() != "" {
			return m.String()
		}
		if c := gjson.GetBytes(res.Body, "error.code"); c.Exists() && c.String() != "" {
			return c.String()
		}
	}
	return res.Status
}

// responseCode extracts the server's machine-readable error code, or an
// empty string when the response carries none.
func responseCode(res *httpclient.RawResult) string {
	if len(res.Body) > 0 && gjson.ValidBytes(res.Body) {
		if c := gjson.GetBytes(res.Body, "error.code"); c.Exists() {
			return c.String()
		}
	}
	return ""
}

// carriesError reports whether a response body carries the error envelope.
// Some endpoints signal application-level failures inside a 200.
func carriesError(res *httpclient.RawResult) bool {
	if len(res.Body) == 0 || !gjson.ValidBytes(res.Body) {
		return false
	}
	e := gjson.GetBytes(res.Body, "error")
	if !e.IsObject() {
		return false
	}
	return e.Get("message").Exists() || e.Get("code").Exists()
}

// failureFromResponse builds a Failure from a non-success response, keeping
// the server's error code when it provided one.
func failureFromResponse(res *httpclient.RawResult) *Failure {
	code := responseCode(res)
	if code == "" {
		code = CodeServerError
	}
	return &Failure{
		Code:       code,
		Message:    responseMessage(res),
		HTTPStatus: res.StatusCode,
	}
}

// parsePartial decodes the per-item results of a 206 response. Items with a
// status other than "ok" count as failed.
func parsePartial(body []byte) *PartialResult {
	pr := &PartialResult{}
	results := gjson.GetBytes(body, "results")
	results.ForEach(func(_, r gjson.Result) bool {
		item := ItemResult{
			ID:      r.Get("id").String(),
			Status:  r.Get("status").String(),
			Code:    r.Get("code").String(),
			Message: r.Get("message").String(),
		}
		if strings.EqualFold(item.Status, "ok") {
			pr.Succeeded++
		} else {
			pr.Failed++
		}
		pr.Items = append(pr.Items, item)
		return true
	})
	return pr
}
