// Package guess implements a number guessing game. Game progress rides
// in the continuation state as a JSON blob; win/loss tallies persist in
// the plugin store.
package guess

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/voxbot-dev/voxbot/internal/plugin"
)

const (
	maxNumber = 100
	maxTries  = 7
)

// Plugin runs the guessing game.
type Plugin struct {
	// pick is the target chooser; replaceable in tests.
	pick func() int
}

// Factory returns the plugin factory.
func Factory() plugin.Factory {
	return plugin.Factory{ID: "guess", New: func() plugin.Plugin {
		return &Plugin{pick: func() int { return rand.Intn(maxNumber) + 1 }}
	}}
}

func (p *Plugin) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:        "guess",
		DisplayName: "Guess",
		Description: "Number guessing game",
		Version:     "1.0.0",
		UsesStorage: true,
	}
}

func (p *Plugin) Commands() []*plugin.Command {
	return []*plugin.Command{
		{
			Name:        "guess",
			Description: fmt.Sprintf("guess a number between 1 and %d", maxNumber),
			Handler:     p.start,
		},
		{
			Name:        "stats",
			Description: "show your guessing record",
			Handler:     p.stats,
		},
	}
}

func (p *Plugin) Interactions() []*plugin.Interaction {
	return []*plugin.Interaction{
		{Name: "turn", Handler: p.turn},
	}
}

func (p *Plugin) OnLoad(ctx *plugin.Context) error   { return nil }
func (p *Plugin) OnUnload(ctx *plugin.Context) error { return nil }

func (p *Plugin) start(inv *plugin.Invocation) (plugin.Result, error) {
	state, _ := sjson.Set("", "target", p.pick())
	state, _ = sjson.Set(state, "tries", 0)

	prompt := fmt.Sprintf("I picked a number between 1 and %d. You have %d tries. Go!",
		maxNumber, maxTries)
	return plugin.Continue(prompt, "turn", []byte(state)), nil
}

func (p *Plugin) turn(res *plugin.Resume) (plugin.Result, error) {
	body := strings.TrimSpace(res.Message.Body)
	if strings.EqualFold(body, "stop") {
		return plugin.Reply("game over, I win by forfeit"), nil
	}

	n, err := strconv.Atoi(body)
	if err != nil || n < 1 || n > maxNumber {
		// Re-arm the continuation so a typo does not end the game.
		prompt := fmt.Sprintf("that's not a number between 1 and %d; try again or say stop", maxNumber)
		return plugin.Continue(prompt, "turn", res.State), nil
	}

	target := int(gjson.GetBytes(res.State, "target").Int())
	tries := int(gjson.GetBytes(res.State, "tries").Int()) + 1

	switch {
	case n == target:
		if err := p.record(res, "wins"); err != nil {
			return plugin.None(), err
		}
		return plugin.Reply(fmt.Sprintf("correct! got it in %d tries", tries)), nil

	case tries >= maxTries:
		if err := p.record(res, "losses"); err != nil {
			return plugin.None(), err
		}
		return plugin.Reply(fmt.Sprintf("out of tries, it was %d", target)), nil

	default:
		hint := "higher"
		if n > target {
			hint = "lower"
		}
		state, _ := sjson.SetBytes(res.State, "tries", tries)
		prompt := fmt.Sprintf("%s (%d tries left)", hint, maxTries-tries)
		return plugin.Continue(prompt, "turn", state), nil
	}
}

// record bumps the sender's counter under field ("wins" or "losses").
func (p *Plugin) record(res *plugin.Resume, field string) error {
	if res.Store == nil {
		return nil
	}

	key := "record/" + res.Message.Sender
	blob, err := res.Store.Get(key)
	if err != nil {
		return err
	}

	count := gjson.GetBytes(blob, field).Int() + 1
	updated, err := sjson.SetBytes(blob, field, count)
	if err != nil {
		return err
	}
	return res.Store.Put(key, updated)
}

func (p *Plugin) stats(inv *plugin.Invocation) (plugin.Result, error) {
	if inv.Store == nil {
		return plugin.None(), plugin.UserErrorf("stats are unavailable without storage")
	}

	blob, err := inv.Store.Get("record/" + inv.Message.Sender)
	if err != nil {
		return plugin.None(), err
	}
	if blob == nil {
		return plugin.Reply("no games on record, start one with /guess"), nil
	}

	wins := gjson.GetBytes(blob, "wins").Int()
	losses := gjson.GetBytes(blob, "losses").Int()
	return plugin.Reply(fmt.Sprintf("%d wins, %d losses", wins, losses)), nil
}
