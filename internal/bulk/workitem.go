package bulk

import "os"

// pathSeparator is the platform separator, lifted to a constant for the
// depth-sorting helpers.
const pathSeparator = os.PathSeparator

// op tags a work item. Adding a new action is adding a tag plus a handler
// in Engine.execute.
type op int

const (
	opCopyFile op = iota
	opMkdir
	opDeleteFile
	opRmdirEmpty
)

// workItem is one scanner-produced, worker-consumed filesystem action.
// root is the original top-level source the item was discovered under, used
// to attribute failures back to the user's request.
type workItem struct {
	op   op
	src  string
	dst  string
	root string

	// copy flags
	overwrite bool
	verify    bool
	// delete mode: true bypasses the platform trash (network volumes,
	// move delete phase).
	direct bool
}
