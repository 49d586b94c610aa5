// Package preset turns a Preset document plus the inbound client
// messages into the final message list sent to the upstream.
package preset

import (
	"sort"

	"github.com/foamcold/gproxy/internal/model"
	"github.com/foamcold/gproxy/internal/varengine"
)

// Expand walks preset items in sort-order and emits the final message
// list. If preset is nil, the inbound messages are returned unchanged.
// scope is used to expand {{...}} directives inside normal-item content;
// it must be fresh per request.
func Expand(p *model.Preset, inbound []model.Message, scope *varengine.Scope) ([]model.Message, error) {
	if p == nil {
		return inbound, nil
	}

	if len(p.Items) == 0 {
		// An empty preset behaves like no preset at all: identity on
		// the inbound messages, no auto-append.
		return inbound, nil
	}

	items := make([]model.PresetItem, len(p.Items))
	copy(items, p.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SortOrder < items[j].SortOrder
	})

	lastUserIdx := -1
	for i := len(inbound) - 1; i >= 0; i-- {
		if inbound[i].Role == "user" {
			lastUserIdx = i
			break
		}
	}

	history := make([]model.Message, 0, len(inbound))
	for i, m := range inbound {
		if i == lastUserIdx {
			continue
		}
		history = append(history, m)
	}

	out := make([]model.Message, 0, len(items)+1)
	sawUserInput := false

	for _, item := range items {
		if !item.Enabled {
			continue
		}
		switch item.Type {
		case model.ItemNormal:
			out = append(out, model.Message{
				Role:    item.Role,
				Content: scope.Expand(item.Content),
			})
		case model.ItemUserInput:
			sawUserInput = true
			if lastUserIdx >= 0 {
				out = append(out, inbound[lastUserIdx])
			}
		case model.ItemHistory:
			out = append(out, history...)
		}
	}

	if !sawUserInput && lastUserIdx >= 0 {
		out = append(out, inbound[lastUserIdx])
	}

	return out, nil
}
