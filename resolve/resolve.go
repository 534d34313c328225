// Package resolve picks the six share parameters out of the captured traffic,
// falling back to pattern matching over the page corpus.
package resolve

import (
	"regexp"

	"github.com/rs/zerolog/log"

	"github.com/tera/terastream/types"
)

// Strategy extracts one parameter from the corpus with a single pattern.
type Strategy struct {
	Name string
	re   *regexp.Regexp
}

func newStrategy(name, pattern string) Strategy {
	return Strategy{Name: name, re: regexp.MustCompile(pattern)}
}

// Find returns the first non-empty capture group of the leftmost match.
func (s Strategy) Find(corpus string) (string, bool) {
	value, _, ok := s.find(corpus)
	return value, ok
}

// find also reports where the match starts in corpus.
func (s Strategy) find(corpus string) (string, int, bool) {
	loc := s.re.FindStringSubmatchIndex(corpus)
	if loc == nil {
		return "", 0, false
	}
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] >= 0 && loc[i+1] > loc[i] {
			return corpus[loc[i]:loc[i+1]], loc[0], true
		}
	}
	return "", 0, false
}

// Strategies lists the fallback patterns per parameter. The match starting
// earliest in the corpus wins, ties go to the strategy listed first.
var Strategies = map[string][]Strategy{
	types.ParamUK: {
		newStrategy("uk-inline", `uk[=:"]?(\d+)"?`),
		newStrategy("uk-json", `["']uk["']:["']?(\d+)["']?`),
		newStrategy("uk-fid-query", `fid=(\d+)`),
		newStrategy("uk-suk", `suk["']?:(\d+)`),
	},
	types.ParamShareID: {
		newStrategy("shareid-inline", `shareid[=:"]?(\d+)"?`),
		newStrategy("shareid-json", `["']share_id["']:["']?(\d+)["']?`),
		newStrategy("shareid-sid", `sid["']?:(\d+)`),
	},
	types.ParamFID: {
		newStrategy("fid-inline", `fid[=:"]?(\d+)"?`),
		newStrategy("fid-json", `["']fid["']:["']?(\d+)["']?`),
		newStrategy("fid-query", `fid=(\d+)`),
	},
	types.ParamSign: {
		newStrategy("sign-inline", `sign[=:"]?([a-fA-F0-9%\-=]+?)(?:&|$|"|')`),
		newStrategy("sign-json", `["']sign["']:["']?([a-fA-F0-9%\-=]+)["']?`),
	},
	types.ParamTimestamp: {
		newStrategy("timestamp-inline", `timestamp[=:"]?(\d+)"?`),
		newStrategy("timestamp-json", `["']timestamp["']:["']?(\d+)["']?`),
		newStrategy("timestamp-time", `time=(\d+)`),
	},
	types.ParamJSToken: {
		newStrategy("jstoken-inline", `jsToken[=:"]?([A-F0-9]+)"?`),
		newStrategy("jstoken-json", `["']jsToken["']:["']?([A-F0-9]+)["']?`),
		newStrategy("jstoken-query", `jsToken=([A-F0-9]+)`),
	},
}

// captured keys read for each parameter, first non-empty wins
var capturedKeys = map[string][]string{
	types.ParamUK:        {types.ParamUK, types.ParamSUK},
	types.ParamShareID:   {types.ParamShareID, types.ParamSID},
	types.ParamFID:       {types.ParamFID},
	types.ParamSign:      {types.ParamSign},
	types.ParamTimestamp: {types.ParamTimestamp},
	types.ParamJSToken:   {types.ParamJSToken},
}

// Resolve prefers captured values and only scans the corpus for what is missing.
func Resolve(captured map[string]string, corpus string) types.Params {
	var p types.Params
	for _, name := range types.RequiredParams {
		value, source := lookup(name, captured, corpus)
		if value == "" {
			log.Debug().Str("param", name).Msg("parameter not found")
			continue
		}
		log.Debug().Str("param", name).Str("source", source).Msg("parameter resolved")
		p.Set(name, value)
	}
	return p
}

func lookup(name string, captured map[string]string, corpus string) (string, string) {
	for _, key := range capturedKeys[name] {
		if v := captured[key]; v != "" {
			return v, "captured:" + key
		}
	}
	return earliest(Strategies[name], corpus)
}

func earliest(strategies []Strategy, corpus string) (string, string) {
	var (
		best     string
		bestName string
		bestAt   = -1
	)
	for _, s := range strategies {
		v, at, ok := s.find(corpus)
		if !ok {
			continue
		}
		if bestAt < 0 || at < bestAt {
			best, bestName, bestAt = v, s.Name, at
		}
	}
	return best, bestName
}
