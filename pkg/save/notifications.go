package save

// Notification is the closed set of persistence notifications.
type Notification interface {
	saveNotification()
}

type Saved struct {
	Slot int
	Auto bool
}

type SaveFailed struct {
	Slot int
	Err  error
}

type Loaded struct {
	Slot int
}

type LoadFailed struct {
	Slot int
	Err  error
}

// VersionMismatch warns that a snapshot was written by a different major
// format version. Loading continues.
type VersionMismatch struct {
	Slot    int
	Stored  string
	Running string
}

func (Saved) saveNotification()           {}
func (SaveFailed) saveNotification()      {}
func (Loaded) saveNotification()          {}
func (LoadFailed) saveNotification()      {}
func (VersionMismatch) saveNotification() {}
