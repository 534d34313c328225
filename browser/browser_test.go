package browser

import (
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/google/go-cmp/cmp"

	"github.com/tera/terastream/types"
)

func TestLaunchErrorUnwrap(t *testing.T) {
	cause := errors.New("executable not found")
	var err error = &LaunchError{Op: "launch", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("LaunchError should unwrap to its cause")
	}
	var le *LaunchError
	if !errors.As(err, &le) || le.Op != "launch" {
		t.Errorf("errors.As failed, got %+v", le)
	}
	if err.Error() != "browser launch: executable not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestCookieParams(t *testing.T) {
	cookies := []types.Cookie{
		{Name: "lang", Value: "en", Domain: ".1024tera.com", Path: "/"},
		{Name: "BDUSS", Value: "x", Domain: ".terabox.app", Path: "/", Secure: true, HTTPOnly: true},
	}
	want := []*proto.NetworkCookieParam{
		{Name: "lang", Value: "en", Domain: ".1024tera.com", Path: "/"},
		{Name: "BDUSS", Value: "x", Domain: ".terabox.app", Path: "/", Secure: true, HTTPOnly: true},
	}
	if diff := cmp.Diff(want, cookieParams(cookies)); diff != "" {
		t.Errorf("cookieParams() mismatch (-want +got):\n%s", diff)
	}
}

func TestCloseUnstartedSession(t *testing.T) {
	s := &rodSession{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on an empty session = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
