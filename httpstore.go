package vapor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/http/httpguts"
)

// HTTPStoreClient is the shared HTTP client HTTPStore uses for outbound
// requests, mirroring the teacher's async.go HttpClient var: one client
// reused across calls rather than a fresh one per request.
var HTTPStoreClient = http.DefaultClient

// HTTPStore is a store/load hook implementation (spec.md section 6) backed
// by a remote HTTP endpoint, the default non-core persistence a host can
// wire in for the router's theme-choice persistence without standing up
// its own backend. Keys are validated as header-safe tokens via
// golang.org/x/net/http/httpguts before being used as a URL path segment,
// since a key is also commonly echoed back as a cache-control header by
// the kind of endpoint this talks to.
type HTTPStore struct {
	BaseURL string
}

func NewHTTPStore(baseURL string) *HTTPStore { return &HTTPStore{BaseURL: baseURL} }

func (s *HTTPStore) Store(key string, value Value) error {
	if !httpguts.ValidHeaderFieldName(key) {
		return fmt.Errorf("vapor: store key %q is not header-safe", key)
	}
	raw, err := json.Marshal(valueToJSON(value))
	if err != nil {
		return fmt.Errorf("vapor: encoding store value for %q: %w", key, err)
	}
	req, err := http.NewRequest(http.MethodPut, s.BaseURL+"/"+key, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := HTTPStoreClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("vapor: store %q: unexpected status %d", key, res.StatusCode)
	}
	return nil
}

func (s *HTTPStore) Load(key string) (Value, bool, error) {
	if !httpguts.ValidHeaderFieldName(key) {
		return nil, false, fmt.Errorf("vapor: load key %q is not header-safe", key)
	}
	res, err := HTTPStoreClient.Get(s.BaseURL + "/" + key)
	if err != nil {
		return nil, false, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if res.StatusCode >= 300 {
		return nil, false, fmt.Errorf("vapor: load %q: unexpected status %d", key, res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, false, err
	}
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false, fmt.Errorf("vapor: decoding load value for %q: %w", key, err)
	}
	return jsonToValue(raw), true, nil
}

func valueToJSON(v Value) interface{} {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case String:
		return string(t)
	case Number:
		return float64(t)
	case List:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = valueToJSON(e)
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = valueToJSON(e)
		}
		return out
	default:
		return nil
	}
}

func jsonToValue(raw interface{}) Value {
	switch t := raw.(type) {
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		return Number(t)
	case []interface{}:
		out := make(List, len(t))
		for i, e := range t {
			out[i] = jsonToValue(e)
		}
		return out
	case map[string]interface{}:
		out := NewObject()
		for k, e := range t {
			out[k] = jsonToValue(e)
		}
		return out
	default:
		return nil
	}
}
