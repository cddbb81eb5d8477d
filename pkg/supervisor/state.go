package supervisor

import "fmt"

// State is the supervisor's lifecycle position. It only moves forward.
type State int32

const (
	StateInit State = iota
	StateRouterStarted
	StateBrowserStarted
	StateRunning
	StateTearingDown
	StateTerminated
)

var stateNames = map[State]string{
	StateInit:           "INIT",
	StateRouterStarted:  "ROUTER_STARTED",
	StateBrowserStarted: "BROWSER_STARTED",
	StateRunning:        "RUNNING",
	StateTearingDown:    "TEARING_DOWN",
	StateTerminated:     "TERMINATED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int32(s))
}

// Trigger is what ended the session.
type Trigger string

const (
	TriggerNone        Trigger = ""
	TriggerBrowserExit Trigger = "browser-exit"
	TriggerSignal      Trigger = "signal"
	TriggerStartup     Trigger = "startup-failure"
)
