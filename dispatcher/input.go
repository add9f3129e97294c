package dispatcher

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	gwerrors "github.com/sweetpotato0/kjm-gateway/errors"
)

// maxBodyBytes bounds how much of a request body is read for parameters.
const maxBodyBytes = 1 << 20

// Param is one named parameter as seen in both request representations.
type Param struct {
	Name  string
	Query *string
	Body  *string
}

// Value returns the query value if present, else the body value if present,
// else a MissingParameter error. Values are returned verbatim.
func (p Param) Value() (string, error) {
	if p.Query != nil {
		return *p.Query, nil
	}
	if p.Body != nil {
		return *p.Body, nil
	}
	return "", gwerrors.New(gwerrors.KindMissingParameter, p.Name)
}

// Params holds the query string and the decoded body of one request.
type Params struct {
	query url.Values
	body  map[string]string
}

// NewParams builds Params from already decoded parts. Either may be nil.
func NewParams(query url.Values, body map[string]string) Params {
	return Params{query: query, body: body}
}

// ParamsFromRequest reads the query string and, whatever the method, a JSON
// object or urlencoded form body. A body that cannot be decoded is treated
// as absent, and so is one larger than maxBodyBytes.
func ParamsFromRequest(r *http.Request) Params {
	p := Params{query: r.URL.Query()}
	if r.Body == nil || r.Body == http.NoBody {
		return p
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(raw) == 0 || len(raw) > maxBodyBytes {
		return p
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		p.body = decodeForm(raw)
	default:
		p.body = decodeJSONObject(raw)
	}
	return p
}

// Param returns the named parameter.
func (p Params) Param(name string) Param {
	param := Param{Name: name}
	if vs, ok := p.query[name]; ok && len(vs) > 0 {
		v := vs[0]
		param.Query = &v
	}
	if v, ok := p.body[name]; ok {
		param.Body = &v
	}
	return param
}

// Require returns the value of a required parameter.
func (p Params) Require(name string) (string, error) {
	return p.Param(name).Value()
}

// Lookup returns the value of an optional parameter.
func (p Params) Lookup(name string) (string, bool) {
	v, err := p.Param(name).Value()
	return v, err == nil
}

func decodeJSONObject(raw []byte) map[string]string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
		}
	}
	return out
}

func decodeForm(raw []byte) map[string]string {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
