package backend

import (
	"fmt"
	"net/url"
	"sort"
)

// Descriptor describes one outbound call to the recommendation REST API.
type Descriptor struct {
	URL    string
	Method string
	Params map[string]any
	Data   any
}

// Query encodes Params as a URL query string with deterministic ordering.
func (d Descriptor) Query() url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(d.Params))
	for k := range d.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := d.Params[k]
		if v == nil {
			continue
		}
		values.Set(k, fmt.Sprint(v))
	}
	return values
}

// String renders "METHOD url?query" for logs and notifications.
func (d Descriptor) String() string {
	q := d.Query().Encode()
	if q == "" {
		return d.Method + " " + d.URL
	}
	return d.Method + " " + d.URL + "?" + q
}
