package capture

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/tera/terastream/types"
)

// Markers are the url fragments of the calls that carry share parameters.
var Markers = []string{
	"/share/streaming",
	"querysurltransfer",
	"jsToken",
	"membership/proxy/user",
}

// Response is one observed network response with its decoded body.
type Response struct {
	URL  string
	Body string
}

type queryTarget struct {
	key   string
	param string
}

// order matters: sid and suk overwrite what shareid and uk wrote
var queryTargets = []queryTarget{
	{types.ParamJSToken, types.ParamJSToken},
	{types.ParamSign, types.ParamSign},
	{types.ParamTimestamp, types.ParamTimestamp},
	{types.ParamUK, types.ParamUK},
	{types.ParamShareID, types.ParamShareID},
	{types.ParamFID, types.ParamFID},
	{types.ParamSID, types.ParamShareID},
	{types.ParamSUK, types.ParamUK},
}

// Interceptor turns matching responses into accumulator writes.
type Interceptor struct {
	Acc *Accumulator
}

func NewInterceptor(acc *Accumulator) *Interceptor {
	return &Interceptor{Acc: acc}
}

func (i *Interceptor) Match(rawURL string) bool {
	for _, m := range Markers {
		if strings.Contains(rawURL, m) {
			return true
		}
	}
	return false
}

// Handle merges the json fields of the body, then the recognised query keys
// of the url (or of the body when the url has none).
func (i *Interceptor) Handle(resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("url", resp.URL).Interface("panic", r).Msg("response handler failed")
		}
	}()

	pending := make(map[string]string)
	mergeJSON(resp.Body, pending)
	mergeQuery(resp, pending)

	if len(pending) == 0 {
		return
	}
	log.Debug().Str("url", resp.URL).Int("values", len(pending)).Msg("captured share parameters")
	i.Acc.Merge(pending)
}

// only top level scalars, numbers keep their raw text
func mergeJSON(body string, into map[string]string) {
	if !gjson.Valid(body) {
		return
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return
	}
	doc.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.String:
			into[key.String()] = value.Str
		case gjson.Number, gjson.True, gjson.False:
			into[key.String()] = value.Raw
		}
		return true
	})
}

func mergeQuery(resp Response, into map[string]string) {
	raw := ""
	if u, err := url.Parse(resp.URL); err == nil {
		raw = u.RawQuery
	} else if idx := strings.IndexByte(resp.URL, '?'); idx >= 0 {
		raw = resp.URL[idx+1:]
	}
	if raw == "" {
		raw = resp.Body
	}
	if raw == "" {
		return
	}

	// malformed pairs are dropped, the rest is still usable
	values, err := url.ParseQuery(raw)
	if err != nil {
		log.Debug().Err(err).Str("url", resp.URL).Msg("partial query string")
	}

	for _, t := range queryTargets {
		// repeated keys are ambiguous and skipped
		if vs := values[t.key]; len(vs) == 1 && vs[0] != "" {
			into[t.param] = vs[0]
		}
	}
}
