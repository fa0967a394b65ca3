package domain

// ViewOpKind says how a presenter must change a menu entry.
type ViewOpKind string

const (
	ViewAdd     ViewOpKind = "add"
	ViewInPlace ViewOpKind = "update"
	ViewRemove  ViewOpKind = "remove"
)

// ViewOp is one change to the presented container list. Container is the zero
// value for removals.
type ViewOp struct {
	Kind      ViewOpKind `json:"kind"`
	Key       string     `json:"key"`
	Container Container  `json:"container"`
}

// Add inserts c as a new entry.
func Add(c Container) ViewOp {
	return ViewOp{Kind: ViewAdd, Key: c.Key(), Container: c}
}

// UpdateInPlace replaces the entry with c's key without moving it.
func UpdateInPlace(c Container) ViewOp {
	return ViewOp{Kind: ViewInPlace, Key: c.Key(), Container: c}
}

// Remove drops the entry with key.
func Remove(key string) ViewOp {
	return ViewOp{Kind: ViewRemove, Key: key}
}

// ViewUpdate carries the ops of one reconciliation and the resulting list.
type ViewUpdate struct {
	Seq        uint64      `json:"seq"`
	Ops        []ViewOp    `json:"ops"`
	Containers []Container `json:"containers"`
}
