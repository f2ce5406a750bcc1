package irq

import bxcan "github.com/samsamfire/gobxcan"

type scopedHandler struct {
	line     bxcan.Line
	previous Handler
	replaced bool
}

// Scope registers handlers that only live for the duration of a function
type Scope struct {
	controller *Controller
	registered []scopedHandler
}

func (s *Scope) Register(line bxcan.Line, handler Handler) error {
	previous, replaced, err := s.controller.swap(line, handler)
	if err != nil {
		return err
	}
	s.registered = append(s.registered, scopedHandler{line: line, previous: previous, replaced: replaced})
	return nil
}

// Scope calls fn and, once it returns, puts back the handlers that were
// registered before it on every line it touched.
func (c *Controller) Scope(fn func(scope *Scope)) {
	scope := &Scope{controller: c}
	defer func() {
		for i := len(scope.registered) - 1; i >= 0; i-- {
			entry := scope.registered[i]
			if entry.replaced {
				_, _, _ = c.swap(entry.line, entry.previous)
			} else {
				c.Unregister(entry.line)
			}
		}
	}()
	fn(scope)
}
