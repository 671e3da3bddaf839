package adapter

import (
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"
)

const (
	MethodAuth        = "public/auth"
	MethodSubscribe   = "public/subscribe"
	MethodUnsubscribe = "public/unsubscribe"

	privatePrefix = "private/"
	paramToken    = "access_token"
)

// Operation is an opaque remote procedure call. The core never looks inside Params
// beyond injecting the session token for private methods.
type Operation struct {
	Method string
	Params map[string]any
}

func NewOperation(method string, params map[string]any) Operation {
	if params == nil {
		params = map[string]any{}
	}
	return Operation{Method: method, Params: params}
}

// Private reports whether the method requires an access token.
func (op Operation) Private() bool {
	return strings.HasPrefix(op.Method, privatePrefix)
}

// WithToken returns a copy of the operation carrying the access token in its params.
// Public methods are returned unchanged.
func (op Operation) WithToken(token string) Operation {
	if !op.Private() || token == "" {
		return op
	}

	params := make(map[string]any, len(op.Params)+1)
	maps.Copy(params, op.Params)
	params[paramToken] = token
	return Operation{Method: op.Method, Params: params}
}

// Query renders the params as URL query values for the REST channel.
func (op Operation) Query() url.Values {
	q := make(url.Values, len(op.Params))
	for k, v := range op.Params {
		switch val := v.(type) {
		case []string:
			for _, s := range val {
				q.Add(k, s)
			}
		default:
			q.Set(k, formatParam(val))
		}
	}
	return q
}

func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func (op Operation) String() string {
	return op.Method
}
