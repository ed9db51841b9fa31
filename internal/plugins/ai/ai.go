// Package ai provides LLM-backed chat commands. A conversation started
// with /ai continues through stored continuations, with the transcript
// carried in the continuation state as JSON.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/voxbot-dev/voxbot/internal/plugin"
	"github.com/voxbot-dev/voxbot/internal/ratelimit"
)

const (
	// maxHistory caps the transcript carried between turns.
	maxHistory = 20

	requestTimeout = 60 * time.Second
)

// Plugin answers /ai prompts through a configured provider.
type Plugin struct {
	provider Provider
}

// Factory returns the plugin factory.
func Factory() plugin.Factory {
	return plugin.Factory{ID: "ai", New: func() plugin.Plugin { return &Plugin{} }}
}

func (p *Plugin) Manifest() *plugin.Manifest {
	return &plugin.Manifest{
		Name:        "ai",
		DisplayName: "AI",
		Description: "LLM-backed conversation",
		Version:     "1.0.0",
		Quotas:      []ratelimit.Quota{{Window: time.Minute, MaxPoints: 10}},
		ConfigSchema: map[string]plugin.ConfigProperty{
			"provider": {
				Type:        "string",
				Default:     "openai",
				Enum:        []string{"openai", "anthropic"},
				Description: "completion backend",
			},
			"model": {
				Type:        "string",
				Default:     "gpt-4o-mini",
				Description: "model identifier passed to the provider",
			},
			"max_tokens": {
				Type:        "number",
				Default:     1024,
				Minimum:     ptr(1.0),
				Maximum:     ptr(32768.0),
				Description: "response token cap (anthropic)",
			},
		},
	}
}

func (p *Plugin) Commands() []*plugin.Command {
	return []*plugin.Command{
		{
			Name:        "ai",
			Description: "ask the model something; follow-up messages continue the conversation",
			Weight:      2,
			Handler:     p.ask,
		},
	}
}

func (p *Plugin) Interactions() []*plugin.Interaction {
	return []*plugin.Interaction{
		{Name: "followup", Handler: p.followup},
	}
}

func (p *Plugin) OnLoad(ctx *plugin.Context) error {
	name, _ := ctx.Config["provider"].(string)
	model, _ := ctx.Config["model"].(string)
	maxTokens := 1024
	switch v := ctx.Config["max_tokens"].(type) {
	case int:
		maxTokens = v
	case int64:
		maxTokens = int(v)
	case float64:
		maxTokens = int(v)
	}

	provider, err := newProvider(name, model, maxTokens)
	if err != nil {
		return fmt.Errorf("ai provider: %w", err)
	}
	p.provider = provider
	return nil
}

func (p *Plugin) OnUnload(ctx *plugin.Context) error { return nil }

func (p *Plugin) ask(inv *plugin.Invocation) (plugin.Result, error) {
	if inv.Arg == "" {
		return plugin.None(), plugin.UserErrorf("usage: /ai <prompt>")
	}
	return p.exchange(inv, nil, inv.Arg)
}

func (p *Plugin) followup(res *plugin.Resume) (plugin.Result, error) {
	body := strings.TrimSpace(res.Message.Body)
	if strings.EqualFold(body, "done") {
		return plugin.React(true), nil
	}

	var history []Turn
	if err := json.Unmarshal(res.State, &history); err != nil {
		res.Log.Warn("dropping unreadable conversation state", "err", err)
		history = nil
	}
	return p.exchange(&res.Invocation, history, body)
}

// exchange runs one completion and re-arms the continuation with the
// extended transcript.
func (p *Plugin) exchange(inv *plugin.Invocation, history []Turn, prompt string) (plugin.Result, error) {
	ctx, cancel := context.WithTimeout(inv.Ctx, requestTimeout)
	defer cancel()

	answer, err := p.provider.Complete(ctx, history, prompt)
	if err != nil {
		return plugin.None(), err
	}

	history = append(history,
		Turn{Role: "user", Content: prompt},
		Turn{Role: "assistant", Content: answer},
	)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}

	state, err := json.Marshal(history)
	if err != nil {
		return plugin.None(), err
	}
	return plugin.Continue(answer, "followup", state), nil
}

func ptr(f float64) *float64 { return &f }
