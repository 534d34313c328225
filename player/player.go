// Package player hands a resolved streaming url to a local media player.
package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

var ErrNoPlayer = errors.New("no media player found, install mpv or vlc")

type Player struct {
	Bin  string
	args func(url, title string) []string
}

var players = []Player{
	{
		Bin: "mpv",
		args: func(u, t string) []string {
			return []string{"--title=" + t, u}
		},
	},
	{
		Bin: "vlc",
		args: func(u, t string) []string {
			return []string{"--play-and-exit", "--meta-title=" + t, u}
		},
	},
}

// swapped in tests
var lookPath = exec.LookPath

// Find returns the first installed player.
func Find() (Player, error) {
	for _, p := range players {
		if commandExists(p.Bin) {
			return p, nil
		}
	}
	return Player{}, ErrNoPlayer
}

// Command builds the command that plays url, it is not started.
func (p Player) Command(ctx context.Context, url, title string) *exec.Cmd {
	return exec.CommandContext(ctx, p.Bin, p.args(url, title)...)
}

// RunVideo plays url with the first installed player and blocks until it exits.
func RunVideo(ctx context.Context, url, title string) error {
	p, err := Find()
	if err != nil {
		return err
	}
	if err := p.Command(ctx, url, title).Run(); err != nil {
		return fmt.Errorf("%s: %w", p.Bin, err)
	}
	return nil
}

func commandExists(cmd string) bool {
	_, err := lookPath(cmd)
	return err == nil
}
