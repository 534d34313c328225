// Package identity provides the cookies a browser session is seeded with.
package identity

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
	cache "github.com/patrickmn/go-cache"

	"github.com/tera/terastream/config"
	"github.com/tera/terastream/types"
)

var ErrInvalidCookie = errors.New("invalid cookie")

type Provisioner interface {
	Cookies() ([]types.Cookie, error)
}

// Static hands out a fixed cookie list, usually the [[cookie]] tables of the config.
type Static struct {
	cookies []types.Cookie
}

func NewStatic(cookies []types.Cookie) *Static {
	return &Static{cookies: cookies}
}

func (s *Static) Cookies() ([]types.Cookie, error) {
	return normalize(s.cookies)
}

// File reads a json cookie export, the format browser extensions produce.
type File struct {
	Path string
	C    *cache.Cache
}

// NewFile keeps a parsed file for ttl before reading it again.
func NewFile(path string, ttl time.Duration) *File {
	return &File{
		Path: path,
		C:    cache.New(ttl, 2*ttl),
	}
}

func (f *File) Cookies() ([]types.Cookie, error) {
	if cached, found := f.C.Get(f.Path); found {
		return cached.([]types.Cookie), nil
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading cookies file: %w", err)
	}
	var raw []types.Cookie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing cookies file %s: %w", f.Path, err)
	}
	cookies, err := normalize(raw)
	if err != nil {
		return nil, err
	}

	f.C.Set(f.Path, cookies, cache.DefaultExpiration)
	return cookies, nil
}

const fileCacheTTL = time.Minute

// FromConfig prefers the cookies file when one is configured.
func FromConfig(cfg *config.Config) Provisioner {
	if cfg.CookiesFile != "" {
		return NewFile(cfg.CookiesFile, fileCacheTTL)
	}
	return NewStatic(cfg.Cookies)
}

func normalize(in []types.Cookie) ([]types.Cookie, error) {
	out := make([]types.Cookie, 0, len(in))
	for i, c := range in {
		if c.Name == "" || c.Domain == "" {
			return nil, fmt.Errorf("%w: #%d needs a name and a domain", ErrInvalidCookie, i+1)
		}
		if c.Path == "" {
			c.Path = "/"
		}
		out = append(out, c)
	}
	return out, nil
}
