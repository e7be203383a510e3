package harness

import (
	"errors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// rodBridge implements ScriptBridge over a rod page. Evaluation errors come
// straight from rod; the harness does not wrap them.
type rodBridge struct {
	page *rod.Page
}

func (b *rodBridge) Eval(js string, args ...interface{}) (gson.JSON, error) {
	if b.page == nil {
		return gson.New(nil), errors.New("no page open")
	}
	res, err := b.page.Eval(js, args...)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

func (b *rodBridge) Resolve(js string, args ...interface{}) (Handle, error) {
	if b.page == nil {
		return nil, errors.New("no page open")
	}
	obj, err := b.page.Evaluate(rod.Eval(js, args...).ByObject())
	if err != nil {
		return nil, err
	}
	return &rodHandle{page: b.page, obj: obj}, nil
}

// rodHandle wraps a remote object reference. The element is materialized
// lazily; Text on a non-element object fails with rod's own error.
type rodHandle struct {
	page *rod.Page
	obj  *proto.RuntimeRemoteObject
}

func (h *rodHandle) Text() (string, error) {
	el, err := h.page.ElementFromObject(h.obj)
	if err != nil {
		return "", err
	}
	return el.Text()
}
