package dirtree

// NotificationKind names one lifecycle event of a Tree.
type NotificationKind uint8

const (
	NotifyClearing NotificationKind = iota
	NotifyStartingReading
	NotifyChildAdded
	NotifyDeletingChild
	NotifyChildDeleted
	NotifyReadJobFinished
	NotifyFinished
	NotifyAborted
	NotifyProgressInfo
	NotifyFinalizeLocal
)

func (kind NotificationKind) String() string {
	switch kind {
	case NotifyClearing:
		return "clearing"
	case NotifyStartingReading:
		return "startingReading"
	case NotifyChildAdded:
		return "childAdded"
	case NotifyDeletingChild:
		return "deletingChild"
	case NotifyChildDeleted:
		return "childDeleted"
	case NotifyReadJobFinished:
		return "readJobFinished"
	case NotifyFinished:
		return "finished"
	case NotifyAborted:
		return "aborted"
	case NotifyProgressInfo:
		return "progressInfo"
	case NotifyFinalizeLocal:
		return "finalizeLocal"
	default:
		return "unknown"
	}
}

// Notification is delivered to every Observer of a Tree. Entry is set for
// ChildAdded, DeletingChild, ReadJobFinished and FinalizeLocal (NoEntry for a
// failed scan); Text is set for ProgressInfo.
type Notification struct {
	Kind  NotificationKind
	Entry EntryID
	Text  string
}

// Observer receives tree notifications synchronously, in emission order, on
// the goroutine that mutates the tree.
type Observer interface {
	Notify(notification Notification)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(notification Notification)

func (function ObserverFunc) Notify(notification Notification) {
	function(notification)
}

type observerSlot struct {
	token    int
	observer Observer
}

// Subscribe registers an observer and returns a function that removes it.
func (tree *Tree) Subscribe(observer Observer) func() {
	tree.nextObserverToken++
	token := tree.nextObserverToken
	tree.observers = append(tree.observers, observerSlot{token: token, observer: observer})
	return func() {
		for index, slot := range tree.observers {
			if slot.token == token {
				tree.observers = append(tree.observers[:index:index], tree.observers[index+1:]...)
				return
			}
		}
	}
}

func (tree *Tree) notify(kind NotificationKind, entryID EntryID, text string) {
	if len(tree.observers) == 0 {
		return
	}
	notification := Notification{Kind: kind, Entry: entryID, Text: text}
	snapshot := append([]observerSlot(nil), tree.observers...)
	for _, slot := range snapshot {
		slot.observer.Notify(notification)
	}
}
