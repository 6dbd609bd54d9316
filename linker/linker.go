// Package linker defines LinkerQueue, the external collaborator that
// collects the decoder's deferred actions: work that cannot complete until
// the whole module has been read (a call site whose target function is
// declared later, an element segment waiting on every function index, a
// global initializer waiting on every import). Queue is the default
// in-order implementation; a caller may run the actions as they come in or
// drain them in bulk once decoding succeeds.
package linker

// Action is one deferred unit of work. It receives no arguments: each
// concrete producer closes over whatever state (symtab.SymbolTable,
// sink.NodeSink, the raw bytes) it needs to finish the job, and returns an
// error if the now-complete module context reveals the action is invalid.
type Action func() error

// Kind classifies a queued Action for diagnostics and for callers that
// want to run only a subset of the deferred work (e.g. skip element/data
// writes when only validating, not instantiating).
type Kind int

const (
	// ResolveCall patches a call-stub node with its callee's final address
	// or handle, once every function in the index space is known.
	ResolveCall Kind = iota
	// WriteElement copies a resolved element segment into a table.
	WriteElement
	// WriteData copies a resolved data segment into linear memory.
	WriteData
	// InitGlobal evaluates a global's constant-expression initializer
	// against the now-complete import/global index space.
	InitGlobal
)

// Entry pairs a queued Action with its Kind for introspection.
type Entry struct {
	Kind   Kind
	Action Action
}

// LinkerQueue accumulates deferred actions during decoding and runs them
// once the caller decides the module is otherwise complete.
type LinkerQueue interface {
	Enqueue(kind Kind, action Action)
	// Run executes every queued action in FIFO order, stopping at (and
	// returning) the first error.
	Run() error
	// Len reports how many actions are queued.
	Len() int
}

// Queue is the default FIFO LinkerQueue.
type Queue struct {
	entries []Entry
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Enqueue(kind Kind, action Action) {
	q.entries = append(q.entries, Entry{Kind: kind, Action: action})
}

func (q *Queue) Run() error {
	for _, e := range q.entries {
		if err := e.Action(); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queue) Len() int { return len(q.entries) }

// Entries exposes the queued entries in FIFO order, for callers that want
// to run only actions of certain Kinds.
func (q *Queue) Entries() []Entry { return q.entries }
