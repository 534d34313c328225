package types

// logical names of the values the share page leaks through its traffic
const (
	ParamUK        = "uk"
	ParamSUK       = "suk" // alias of uk
	ParamShareID   = "shareid"
	ParamSID       = "sid" // alias of shareid
	ParamFID       = "fid"
	ParamSign      = "sign"
	ParamTimestamp = "timestamp"
	ParamJSToken   = "jsToken"
)

// RequiredParams lists the six values the streaming url needs, in template order.
var RequiredParams = []string{
	ParamUK,
	ParamShareID,
	ParamFID,
	ParamSign,
	ParamTimestamp,
	ParamJSToken,
}

// Cookie is one piece of the session identity injected into the browser context.
type Cookie struct {
	Name     string `json:"name" toml:"name"`
	Value    string `json:"value" toml:"value"`
	Domain   string `json:"domain" toml:"domain"`
	Path     string `json:"path" toml:"path"`
	Secure   bool   `json:"secure,omitempty" toml:"secure"`
	HTTPOnly bool   `json:"httpOnly,omitempty" toml:"http_only"`
}

// Params is the resolved parameter set, an empty field means unresolved.
type Params struct {
	UK        string `json:"uk"`
	ShareID   string `json:"shareid"`
	FID       string `json:"fid"`
	Sign      string `json:"sign"`
	Timestamp string `json:"timestamp"`
	JSToken   string `json:"jsToken"`
}

// Get returns the value for one of the RequiredParams names.
func (p Params) Get(name string) string {
	switch name {
	case ParamUK:
		return p.UK
	case ParamShareID:
		return p.ShareID
	case ParamFID:
		return p.FID
	case ParamSign:
		return p.Sign
	case ParamTimestamp:
		return p.Timestamp
	case ParamJSToken:
		return p.JSToken
	}
	return ""
}

// Set assigns the value for one of the RequiredParams names, unknown names are ignored.
func (p *Params) Set(name, value string) {
	switch name {
	case ParamUK:
		p.UK = value
	case ParamShareID:
		p.ShareID = value
	case ParamFID:
		p.FID = value
	case ParamSign:
		p.Sign = value
	case ParamTimestamp:
		p.Timestamp = value
	case ParamJSToken:
		p.JSToken = value
	}
}

// Missing returns the names of the unresolved values in template order.
func (p Params) Missing() []string {
	var missing []string
	for _, name := range RequiredParams {
		if p.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (p Params) Complete() bool {
	return len(p.Missing()) == 0
}
