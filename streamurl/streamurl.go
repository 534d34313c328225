// Package streamurl builds the streaming endpoint of a share from its parameters.
package streamurl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tera/terastream/types"
)

const DefaultBase = "https://www.1024tera.com"

const streamingPath = "/share/streaming"

// fixed part of the query the player expects after the share values
const trailer = "&esl=1&isplayer=1&ehps=1&clienttype=0&app_id=250528&web=1&channel=dubox&short_link="

var ErrIncompleteParameters = errors.New("incomplete share parameters")

type Builder struct {
	Base string
}

func New(base string) *Builder {
	if base == "" {
		base = DefaultBase
	}
	return &Builder{Base: strings.TrimRight(base, "/")}
}

// Build substitutes the values as they are, sign can already be percent encoded.
func (b *Builder) Build(p types.Params) (string, error) {
	if missing := p.Missing(); len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", ErrIncompleteParameters, strings.Join(missing, ", "))
	}

	var sb strings.Builder
	sb.WriteString(b.Base)
	sb.WriteString(streamingPath)
	sb.WriteString("?uk=" + p.UK)
	sb.WriteString("&shareid=" + p.ShareID)
	sb.WriteString("&type=M3U8_FLV_264_480")
	sb.WriteString("&fid=" + p.FID)
	sb.WriteString("&sign=" + p.Sign)
	sb.WriteString("&timestamp=" + p.Timestamp)
	sb.WriteString("&jsToken=" + p.JSToken)
	sb.WriteString(trailer)
	return sb.String(), nil
}

// Build uses DefaultBase.
func Build(p types.Params) (string, error) {
	return New(DefaultBase).Build(p)
}
