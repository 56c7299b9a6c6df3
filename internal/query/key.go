package query

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const keyPrefix = "query"

// CacheKey identifies a cached backend response. Keys are typed so two
// differently parameterised queries on one endpoint never share an entry,
// and so responses scoped to one viewer are never served to another.
type CacheKey struct {
	Endpoint string
	Params   url.Values
	Viewer   string
}

// KeyOption customises a CacheKey.
type KeyOption func(*CacheKey)

// WithParam adds a query parameter to the key.
func WithParam(name string, value any) KeyOption {
	return func(k *CacheKey) {
		if k.Params == nil {
			k.Params = url.Values{}
		}
		k.Params.Set(name, fmt.Sprint(value))
	}
}

// ForViewer scopes the key to a single viewer.
func ForViewer(viewer string) KeyOption {
	return func(k *CacheKey) { k.Viewer = viewer }
}

// Key builds a CacheKey for endpoint.
func Key(endpoint string, opts ...KeyOption) CacheKey {
	k := CacheKey{Endpoint: endpoint}
	for _, opt := range opts {
		opt(&k)
	}
	return k
}

// String is the storage key: query|<endpoint>|<sorted params>|<viewer>|.
func (k CacheKey) String() string {
	return k.prefix(true) + escape(k.Viewer) + "|"
}

// InvalidationPrefix is the storage prefix matched when k is invalidated.
// A key without params matches every parameterisation of its endpoint, and
// a key without viewer matches every viewer.
func (k CacheKey) InvalidationPrefix() string {
	if k.Viewer != "" {
		return k.String()
	}
	return k.prefix(len(k.Params) > 0)
}

func (k CacheKey) prefix(withParams bool) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteByte('|')
	b.WriteString(escape(k.Endpoint))
	b.WriteByte('|')
	if withParams {
		b.WriteString(escape(encodeSorted(k.Params)))
		b.WriteByte('|')
	}
	return b.String()
}

func encodeSorted(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

// escape keeps the separator out of key components.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", "%7C")
}
