package graph

// Event is a reset trigger delivered to the engine. Each variant discards
// the lane table and row sequence and rebuilds from the traversal.
type Event interface {
	isEvent()
}

// ReferenceChanged reports that a repository reference was created, updated
// or deleted. When the updated reference has the tracked reference's name
// the engine retargets to it before resetting.
type ReferenceChanged struct {
	Ref *Ref
}

// SettingsChanged carries the settings to apply on the next layout.
type SettingsChanged struct {
	Settings Settings
}

// WorkdirChanged reports that the working tree was modified while the
// engine tracks the checked-out branch.
type WorkdirChanged struct{}

// StatusResolved reports that the asynchronous status check completed, so
// the synthetic status row must be re-evaluated.
type StatusResolved struct{}

func (ReferenceChanged) isEvent() {}
func (SettingsChanged) isEvent()  {}
func (WorkdirChanged) isEvent()   {}
func (StatusResolved) isEvent()   {}
