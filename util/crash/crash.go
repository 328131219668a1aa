// The crash package injects failures into kernel invocations so the
// fatal paths of the bootstrap can be exercised. Events are keyed by
// invocation label and read from the CAPBOOTFAIL environment
// variable.
package crash

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/exp/slices"

	db "capboot/debug"
	"capboot/util/rand"
)

const CAPBOOTFAIL = "CAPBOOTFAIL"

const (
	ONE = 1000
)

// Invocation labels.
const (
	RETYPE       Tselector = "retype"
	SCHEDCONTROL Tselector = "schedcontrol"
	TCBCONFIGURE Tselector = "tcbconfigure"
	WRITEREGS    Tselector = "writeregisters"
	RESUME       Tselector = "resume"
)

type Tselector string

var labels = []Tselector{RETYPE, SCHEDCONTROL, TCBCONFIGURE, WRITEREGS, RESUME}

type Tevent struct {
	Label Tselector `json:"label"`

	// probability of failing an invocation; 0 means always
	Prob float64 `json:"prob"`

	// number of matching invocations to let through first
	Start int `json:"start"`

	// number of times to fail (if <= 0, no limit)
	N int `json:"n"`

	// kernel status to return
	Status uint32 `json:"status"`
}

type EventOpt func(*Tevent)

func WithStart(n int) EventOpt {
	return func(e *Tevent) { e.Start = n }
}

func WithN(n int) EventOpt {
	return func(e *Tevent) { e.N = n }
}

func WithProb(p float64) EventOpt {
	return func(e *Tevent) { e.Prob = p }
}

func NewEvent(l Tselector, status uint32, opts ...EventOpt) Tevent {
	e := Tevent{Label: l, Status: status}
	e.applyOpts(opts)
	return e
}

func (e *Tevent) applyOpts(opts []EventOpt) {
	for _, opt := range opts {
		opt(e)
	}
}

func (e *Tevent) String() string {
	return fmt.Sprintf("{l %v p %v s %v n %v st %v}", e.Label, e.Prob, e.Start, e.N, e.Status)
}

// TeventMap holds at most one event per invocation label. In
// CAPBOOTFAIL it is a JSON list of events.
type TeventMap struct {
	evs map[Tselector]Tevent
}

func NewTeventMap(evs ...Tevent) *TeventMap {
	em := &TeventMap{evs: make(map[Tselector]Tevent)}
	for _, e := range evs {
		em.evs[e.Label] = e
	}
	return em
}

func (em *TeventMap) Lookup(l Tselector) (Tevent, bool) {
	if em == nil {
		return Tevent{}, false
	}
	e, ok := em.evs[l]
	return e, ok
}

func (em *TeventMap) Len() int {
	if em == nil {
		return 0
	}
	return len(em.evs)
}

// events returns the events ordered by label.
func (em *TeventMap) events() []Tevent {
	ls := make([]Tselector, 0, len(em.evs))
	for l := range em.evs {
		ls = append(ls, l)
	}
	slices.Sort(ls)
	evs := make([]Tevent, 0, len(ls))
	for _, l := range ls {
		evs = append(evs, em.evs[l])
	}
	return evs
}

func (em *TeventMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(em.events())
}

func (em *TeventMap) UnmarshalJSON(b []byte) error {
	var evs []Tevent
	if err := json.Unmarshal(b, &evs); err != nil {
		return err
	}
	em.evs = make(map[Tselector]Tevent)
	for _, e := range evs {
		if !slices.Contains(labels, e.Label) {
			return fmt.Errorf("unknown invocation %q", e.Label)
		}
		if _, ok := em.evs[e.Label]; ok {
			return fmt.Errorf("two events for %q", e.Label)
		}
		em.evs[e.Label] = e
	}
	return nil
}

func (em *TeventMap) String() string {
	return fmt.Sprintf("%v", em.events())
}

// ParseEvents reads a JSON event list; the empty string has no events.
func ParseEvents(s string) (*TeventMap, error) {
	em := NewTeventMap()
	if s == "" {
		return em, nil
	}
	if err := json.Unmarshal([]byte(s), em); err != nil {
		return nil, err
	}
	return em, nil
}

// GetEvents returns the events in CAPBOOTFAIL.
func GetEvents() (*TeventMap, error) {
	return ParseEvents(os.Getenv(CAPBOOTFAIL))
}

func SetCapbootFail(em *TeventMap) error {
	b, err := json.Marshal(em)
	if err != nil {
		return err
	}
	return os.Setenv(CAPBOOTFAIL, string(b))
}

// Injector decides, per invocation, whether to fail it.
type Injector struct {
	mu     sync.Mutex
	em     *TeventMap
	seen   map[Tselector]int
	raised map[Tselector]int
}

func NewInjector(em *TeventMap) *Injector {
	if em == nil {
		em = NewTeventMap()
	}
	return &Injector{
		em:     em,
		seen:   make(map[Tselector]int),
		raised: make(map[Tselector]int),
	}
}

// Fire reports the event to raise for an invocation labeled l, if
// any.
func (inj *Injector) Fire(l Tselector) (Tevent, bool) {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	e, ok := inj.em.Lookup(l)
	if !ok {
		return Tevent{}, false
	}
	inj.seen[l]++
	if inj.seen[l] <= e.Start {
		return e, false
	}
	if e.N > 0 && inj.raised[l] >= e.N {
		return e, false
	}
	if e.Prob > 0 && rand.Int64(ONE) >= uint64(e.Prob*ONE) {
		return e, false
	}
	inj.raised[l]++
	db.DPrintf(db.CRASH, "Raise event %v", &e)
	return e, true
}

func (inj *Injector) Raised(l Tselector) int {
	inj.mu.Lock()
	defer inj.mu.Unlock()
	return inj.raised[l]
}
