package preset

import (
	"testing"

	"github.com/foamcold/gproxy/internal/model"
	"github.com/foamcold/gproxy/internal/varengine"
)

func TestExpand_NilPresetReturnsInboundUnchanged(t *testing.T) {
	inbound := []model.Message{{Role: "user", Content: "hi"}}
	got, err := Expand(nil, inbound, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "hi" {
		t.Errorf("got %+v", got)
	}
}

func TestExpand_EmptyPresetReturnsInboundUnchanged(t *testing.T) {
	p := &model.Preset{ID: "p1"}
	inbound := []model.Message{{Role: "user", Content: "hi"}}
	got, err := Expand(p, inbound, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "hi" {
		t.Errorf("got %+v", got)
	}
}

func TestExpand_OrdersItemsBySortOrder(t *testing.T) {
	p := &model.Preset{
		ID: "p1",
		Items: []model.PresetItem{
			{Role: "assistant", Type: model.ItemNormal, Content: "second", Enabled: true, SortOrder: 2},
			{Role: "system", Type: model.ItemNormal, Content: "first", Enabled: true, SortOrder: 1},
		},
	}
	got, err := Expand(p, nil, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Content != "first" || got[1].Content != "second" {
		t.Errorf("got %+v", got)
	}
}

func TestExpand_DisabledItemsSkipped(t *testing.T) {
	p := &model.Preset{
		ID: "p1",
		Items: []model.PresetItem{
			{Role: "system", Type: model.ItemNormal, Content: "visible", Enabled: true, SortOrder: 1},
			{Role: "system", Type: model.ItemNormal, Content: "hidden", Enabled: false, SortOrder: 2},
		},
	}
	got, err := Expand(p, nil, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "visible" {
		t.Errorf("got %+v", got)
	}
}

func TestExpand_UserInputSlotPlacesLastUserMessage(t *testing.T) {
	p := &model.Preset{
		ID: "p1",
		Items: []model.PresetItem{
			{Role: "system", Type: model.ItemNormal, Content: "sys", Enabled: true, SortOrder: 1},
			{Type: model.ItemUserInput, Enabled: true, SortOrder: 2},
		},
	}
	inbound := []model.Message{
		{Role: "user", Content: "earlier"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "latest"},
	}
	got, err := Expand(p, inbound, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Content != "latest" {
		t.Errorf("expected the last user message to land in the user_input slot, got %+v", got)
	}
}

func TestExpand_HistorySlotExcludesLastUserMessage(t *testing.T) {
	p := &model.Preset{
		ID: "p1",
		Items: []model.PresetItem{
			{Type: model.ItemHistory, Enabled: true, SortOrder: 1},
			{Type: model.ItemUserInput, Enabled: true, SortOrder: 2},
		},
	}
	inbound := []model.Message{
		{Role: "user", Content: "earlier"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "latest"},
	}
	got, err := Expand(p, inbound, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected history(2) + user_input(1), got %+v", got)
	}
	if got[0].Content != "earlier" || got[1].Content != "reply" || got[2].Content != "latest" {
		t.Errorf("got %+v", got)
	}
}

func TestExpand_NoUserInputSlotStillAppendsLastUserMessage(t *testing.T) {
	p := &model.Preset{
		ID: "p1",
		Items: []model.PresetItem{
			{Role: "system", Type: model.ItemNormal, Content: "sys", Enabled: true, SortOrder: 1},
		},
	}
	inbound := []model.Message{{Role: "user", Content: "latest"}}
	got, err := Expand(p, inbound, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Content != "latest" {
		t.Errorf("expected the last user message auto-appended, got %+v", got)
	}
}

func TestExpand_NormalItemContentIsVarExpanded(t *testing.T) {
	p := &model.Preset{
		ID: "p1",
		Items: []model.PresetItem{
			{Role: "system", Type: model.ItemNormal, Content: "{{setvar::x::ok}}{{getvar::x}}", Enabled: true, SortOrder: 1},
		},
	}
	got, err := Expand(p, nil, varengine.NewScope(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Content != "ok" {
		t.Errorf("got %+v", got)
	}
}
