package client

import (
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"

	"github.com/google/go-querystring/query"

	"github.com/morezero/jsonrpc11/pkg/jsonrpc"
)

// encodeGet builds the query of a GET. A single mapping argument supplies
// named pairs; otherwise arguments are named after the declared parameters,
// falling back to their index. Sequence values repeat the key.
func (c *Client) encodeGet(proc *jsonrpc.ProcedureDescription, name string, args []any) (*Request, error) {
	values := url.Values{}
	if len(args) == 1 && jsonrpc.KindOf(args[0]) == jsonrpc.KindObject {
		rv := reflect.Indirect(reflect.ValueOf(args[0]))
		if rv.Kind() == reflect.Struct {
			v, err := query.Values(args[0])
			if err != nil {
				return nil, err
			}
			values = v
		} else {
			keys := make([]string, 0, rv.Len())
			for _, k := range rv.MapKeys() {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			for _, k := range keys {
				addQueryValue(values, k, rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			}
		}
	} else {
		for i, arg := range args {
			key := strconv.Itoa(i)
			if proc != nil && i < len(proc.Params) {
				key = proc.Params[i].Name
			}
			addQueryValue(values, key, arg)
		}
	}

	req := c.newRequest(http.MethodGet, name)
	req.RawQuery = values.Encode()
	return req, nil
}

func addQueryValue(values url.Values, key string, v any) {
	if jsonrpc.KindOf(v) == jsonrpc.KindArray {
		if _, isBytes := v.([]byte); !isBytes {
			rv := reflect.Indirect(reflect.ValueOf(v))
			for i := 0; i < rv.Len(); i++ {
				values.Add(key, queryString(rv.Index(i).Interface()))
			}
			return
		}
	}
	values.Add(key, queryString(v))
}

// queryString renders a scalar as query text; structured values become JSON.
func queryString(v any) string {
	switch jsonrpc.KindOf(v) {
	case jsonrpc.KindNull:
		return ""
	case jsonrpc.KindBool:
		return strconv.FormatBool(reflect.Indirect(reflect.ValueOf(v)).Bool())
	case jsonrpc.KindNumber:
		s, _ := jsonrpc.NumberString(reflect.Indirect(reflect.ValueOf(v)).Interface())
		return s
	case jsonrpc.KindString:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		return reflect.Indirect(reflect.ValueOf(v)).String()
	}
	return jsonrpc.MarshalString(v)
}

// encodePost builds the body of a POST. A single mapping argument becomes
// the named params object.
func (c *Client) encodePost(name string, args []any) (*Request, error) {
	var params any = args
	if len(args) == 1 && jsonrpc.KindOf(args[0]) == jsonrpc.KindObject {
		params = args[0]
	} else if args == nil {
		params = []any{}
	}
	body, err := jsonrpc.Marshal(&jsonrpc.Request{Version: jsonrpc.Version, Method: name, Params: params})
	if err != nil {
		return nil, err
	}

	req := c.newRequest(http.MethodPost, name)
	req.Header.Set("Content-Type", jsonrpc.MediaType)
	req.Body = body
	return req, nil
}
