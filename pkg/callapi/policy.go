package callapi

import "fmt"

// Action is one step a task may take against the cache or the API.
type Action int

const (
	// ActionReadCache reads the cached payload.
	ActionReadCache Action = iota + 1
	// ActionInvokeAPI calls the API.
	ActionInvokeAPI
	// ActionReadCacheOnFailure reads the cache only if the API call failed.
	ActionReadCacheOnFailure
	// ActionDeliver sends a notification.
	ActionDeliver
)

func (a Action) String() string {
	switch a {
	case ActionReadCache:
		return "read-cache"
	case ActionInvokeAPI:
		return "invoke-api"
	case ActionReadCacheOnFailure:
		return "read-cache-on-failure"
	case ActionDeliver:
		return "deliver"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// PreCheckNotice is how a cache hit found before execution is delivered.
type PreCheckNotice int

const (
	// NoticeNone delivers nothing before execution.
	NoticeNone PreCheckNotice = iota
	// NoticeProvisional delivers the hit as a non-final result.
	NoticeProvisional
	// NoticeFinal delivers the hit as the only result and suppresses the
	// post-execution delivery.
	NoticeFinal
)

// APICall is when the execute step calls the API.
type APICall int

const (
	// CallAlways calls the API unconditionally.
	CallAlways APICall = iota
	// CallOnMiss calls the API only if the execute-step cache read missed.
	CallOnMiss
	// CallNever never calls the API.
	CallNever
)

// Plan is the fixed recipe a Strategy applies over the pre-check and execute
// steps. It holds no state and performs no I/O.
type Plan struct {
	Strategy Strategy
	// ReadBeforeExecute reads the cache during the pre-check step.
	ReadBeforeExecute bool
	// Notice controls delivery of a pre-check hit.
	Notice PreCheckNotice
	// ReadDuringExecute reads the cache at the start of the execute step.
	ReadDuringExecute bool
	// Call controls the API invocation in the execute step.
	Call APICall
	// FallbackOnNetworkError reads the cache when the API call fails.
	FallbackOnNetworkError bool
}

// PlanFor returns the recipe for s.
func PlanFor(s Strategy) (Plan, error) {
	switch s {
	case FetchCacheThenAPI:
		return Plan{Strategy: s, ReadBeforeExecute: true, Notice: NoticeProvisional, Call: CallAlways}, nil
	case FetchAPIElseCache:
		return Plan{Strategy: s, Call: CallAlways, FallbackOnNetworkError: true}, nil
	case FetchAPI:
		return Plan{Strategy: s, Call: CallAlways}, nil
	case FetchCache:
		return Plan{Strategy: s, ReadDuringExecute: true, Call: CallNever}, nil
	case FetchCacheElseAPI:
		return Plan{Strategy: s, ReadDuringExecute: true, Call: CallOnMiss}, nil
	case FetchCacheAlwaysAPI:
		return Plan{Strategy: s, ReadBeforeExecute: true, Notice: NoticeFinal, Call: CallAlways}, nil
	default:
		return Plan{}, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
}

// Delivery describes one notification a task will produce.
type Delivery struct {
	Final  bool
	Source Source
}

// Step is one entry of a Decision: an action, or for ActionDeliver the
// notification to send.
type Step struct {
	Action   Action
	Delivery Delivery // set for ActionDeliver
}

// Decision is the ordered list of steps a task runs once cache presence is
// known. The steps up to and including the first cache read are the same
// whether or not the cache holds a payload.
type Decision struct {
	Steps []Step
}

// Actions returns the non-delivery actions in order.
func (d Decision) Actions() []Action {
	var actions []Action
	for _, step := range d.Steps {
		if step.Action != ActionDeliver {
			actions = append(actions, step.Action)
		}
	}
	return actions
}

// Deliveries returns the notifications in order.
func (d Decision) Deliveries() []Delivery {
	var deliveries []Delivery
	for _, step := range d.Steps {
		if step.Action == ActionDeliver {
			deliveries = append(deliveries, step.Delivery)
		}
	}
	return deliveries
}

// Decide lists, in order, the steps taken when the cache does or does not
// hold a payload. For FetchAPIElseCache the final delivery's source becomes
// SourceCache if the API call fails.
func (p Plan) Decide(cachePresent bool) Decision {
	var d Decision
	add := func(a Action) { d.Steps = append(d.Steps, Step{Action: a}) }
	deliver := func(final bool, source Source) {
		d.Steps = append(d.Steps, Step{Action: ActionDeliver, Delivery: Delivery{Final: final, Source: source}})
	}

	suppressFinal := false
	if p.ReadBeforeExecute {
		add(ActionReadCache)
		if cachePresent {
			switch p.Notice {
			case NoticeProvisional:
				deliver(false, SourceCache)
			case NoticeFinal:
				deliver(true, SourceCache)
				suppressFinal = true
			case NoticeNone:
			}
		}
	}

	finalSource := SourceAPI
	if p.ReadDuringExecute {
		add(ActionReadCache)
		finalSource = SourceCache
	}
	if p.invokesAPI(cachePresent) {
		add(ActionInvokeAPI)
		finalSource = SourceAPI
		if p.FallbackOnNetworkError {
			add(ActionReadCacheOnFailure)
		}
	}

	if !suppressFinal {
		deliver(true, finalSource)
	}
	return d
}

// invokesAPI reports whether the execute step calls the API given what the
// cache read found.
func (p Plan) invokesAPI(cachePresent bool) bool {
	switch p.Call {
	case CallAlways:
		return true
	case CallOnMiss:
		return !cachePresent
	case CallNever:
		return false
	default:
		return false
	}
}
