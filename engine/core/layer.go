package core

type Layer interface {
	OnAttach(e *Engine)
	OnDetach(e *Engine)
	OnUpdate(e *Engine, dt float64)
	OnRender(e *Engine, alpha float64)
	OnEvent(e *Engine, ev Event) bool // return true if handled; propagation stops
}

// LayerStack keeps layers in push order. Events travel top-down, updates and
// renders bottom-up.
type LayerStack struct{ list []Layer }

// Push attaches l and puts it on top.
func (ls *LayerStack) Push(e *Engine, l Layer) {
	l.OnAttach(e)
	ls.list = append(ls.list, l)
}

func (ls *LayerStack) Pop(e *Engine) (Layer, bool) {
	if len(ls.list) == 0 {
		return nil, false
	}
	i := len(ls.list) - 1
	l := ls.list[i]
	ls.list = ls.list[:i]
	l.OnDetach(e)
	return l, true
}

// DetachAll pops every layer, top first.
func (ls *LayerStack) DetachAll(e *Engine) {
	for {
		if _, ok := ls.Pop(e); !ok {
			return
		}
	}
}

func (ls *LayerStack) Len() int { return len(ls.list) }

func (ls *LayerStack) ForEach(f func(Layer)) {
	for _, l := range ls.list {
		f(l)
	}
}

// Dispatch offers ev to each layer from the top until one handles it.
func (ls *LayerStack) Dispatch(e *Engine, ev Event) bool {
	for i := len(ls.list) - 1; i >= 0; i-- {
		if ls.list[i].OnEvent(e, ev) {
			return true
		}
	}
	return false
}
