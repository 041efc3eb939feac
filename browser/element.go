package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/causelist/models"
)

type element struct {
	el *rod.Element
}

func (e *element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Fill(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	if _, err := el.Eval(`() => { this.value = '' }`); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return el.Input(text)
}

func (e *element) SetValue(ctx context.Context, value string) error {
	_, err := e.el.Context(ctx).Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event('input', { bubbles: true }));
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	return err
}

func (e *element) SelectValue(ctx context.Context, value string) error {
	sel := fmt.Sprintf(`option[value="%s"]`, strings.ReplaceAll(value, `"`, `\"`))
	return e.el.Context(ctx).Select([]string{sel}, true, rod.SelectorTypeCSSSector)
}

func (e *element) SelectText(ctx context.Context, text string) error {
	return e.el.Context(ctx).Select([]string{text}, true, rod.SelectorTypeText)
}

func (e *element) SelectIndex(ctx context.Context, index int) error {
	res, err := e.el.Context(ctx).Eval(`(i) => {
		if (i < 0 || i >= this.options.length) return false;
		this.selectedIndex = i;
		this.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	}`, index)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("option index %d out of range", index)
	}
	return nil
}

func (e *element) Options(ctx context.Context) ([]models.CourtOption, error) {
	res, err := e.el.Context(ctx).Eval(`() => Array.from(this.options || []).map(o => ({
		value: o.value,
		label: o.text.trim(),
	}))`)
	if err != nil {
		return nil, err
	}
	arr := res.Value.Arr()
	out := make([]models.CourtOption, 0, len(arr))
	for _, o := range arr {
		out = append(out, models.CourtOption{
			Value: o.Get("value").Str(),
			Label: o.Get("label").Str(),
		})
	}
	return out, nil
}

func (e *element) Checked(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Property("checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	img, err := e.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, errors.New("empty screenshot")
	}
	return img, nil
}
