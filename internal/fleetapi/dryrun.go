package fleetapi

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
)

// maskValue replaces credential material in rendered output.
const maskValue = "********"

// sensitiveFields are payload keys whose values never appear in rendered
// output, at any nesting depth.
var sensitiveFields = map[string]bool{
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"token":         true,
	"apikey":        true,
	"api_key":       true,
	"authorization": true,
}

// renderRequest builds the dry-run rendering of a descriptor: the exact
// method, URI and headers Do would send, with the bearer credential masked
// and credential-bearing body fields redacted. No transport call is made.
func (e *Executor) renderRequest(desc Descriptor) (*RenderedRequest, error) {
	opts := requestOptions(desc)
	if desc.Paginate && e.engine.PageSize > 0 {
		// Render the first page request of the sequence. Copy the params so
		// the caller's descriptor stays untouched.
		q := make(map[string]string, len(opts.QueryParams)+1)
		for k, v := range opts.QueryParams {
			q[k] = v
		}
		if _, ok := q["limit"]; !ok {
			q["limit"] = strconv.Itoa(e.engine.PageSize)
		}
		opts.QueryParams = q
	}

	reqURL, err := httpclient.BuildRequestURL(e.config.GetServerURL(), opts)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if token := httpclient.BearerToken(e.config); token != "" {
		headers["Authorization"] = "Bearer " + maskValue
	}
	for k, v := range desc.Headers {
		if sensitiveFields[strings.ToLower(k)] {
			headers[k] = maskValue
			continue
		}
		headers[k] = v
	}

	return &RenderedRequest{
		Method:  desc.Method,
		URL:     reqURL,
		Headers: headers,
		Body:    redactBody(desc.Body),
	}, nil
}

// redactBody masks the values of credential-bearing fields wherever they
// appear in the payload. Non-JSON bodies pass through untouched.
func redactBody(body []byte) []byte {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return body
	}

	out := body
	var walk func(prefix string, v gjson.Result)
	walk = func(prefix string, v gjson.Result) {
		if v.IsObject() {
			v.ForEach(func(k, val gjson.Result) bool {
				p := k.String()
				if prefix != "" {
					p = prefix + "." + p
				}
				if sensitiveFields[strings.ToLower(k.String())] {
					out, _ = sjson.SetBytes(out, p, maskValue)
					return true
				}
				if val.IsObject() || val.IsArray() {
					walk(p, val)
				}
				return true
			})
			return
		}
		if v.IsArray() {
			for i, val := range v.Array() {
				if !val.IsObject() && !val.IsArray() {
					continue
				}
				p := strconv.Itoa(i)
				if prefix != "" {
					p = prefix + "." + p
				}
				walk(p, val)
			}
		}
	}
	walk("", gjson.ParseBytes(body))
	return out
}
