package evaluator

// Environment is a lexical scope: a map of names to thunks with a pointer
// to the enclosing scope. The object context (self, super, dollar) rides
// along separately from the variable store because entering a nested
// scope keeps the context, while entering a field body replaces it.
type Environment struct {
	store map[string]*Thunk
	outer *Environment

	// self is the most-derived object of the current field's chain; super
	// is the slice of the chain older than the defining layer. Both are
	// nil outside any object.
	self  *Object
	super *Object
	// dollar is the outermost enclosing object's self.
	dollar *Object
}

// NewEnvironment creates a top-level scope with no object context.
func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]*Thunk)}
}

// NewEnclosedEnvironment creates a child scope. Object context is
// inherited; local/function scopes never change what self means.
func NewEnclosedEnvironment(outer *Environment) *Environment {
	return &Environment{
		store:  make(map[string]*Thunk),
		outer:  outer,
		self:   outer.self,
		super:  outer.super,
		dollar: outer.dollar,
	}
}

// newFieldEnvironment creates the scope a field body evaluates in: the
// defining layer's captured scope with the object context rebound.
func newFieldEnvironment(outer *Environment, self, super, dollar *Object) *Environment {
	return &Environment{
		store:  make(map[string]*Thunk),
		outer:  outer,
		self:   self,
		super:  super,
		dollar: dollar,
	}
}

// Get resolves a name through the scope chain.
func (e *Environment) Get(name string) (*Thunk, bool) {
	for env := e; env != nil; env = env.outer {
		if t, ok := env.store[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Set binds a name in this scope.
func (e *Environment) Set(name string, t *Thunk) {
	e.store[name] = t
}

// Names collects every visible binding, nearest scope first. Shadowed
// names appear once. Used for "Did you mean?" suggestions.
func (e *Environment) Names() []string {
	seen := map[string]bool{}
	var names []string
	for env := e; env != nil; env = env.outer {
		for name := range env.store {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}
