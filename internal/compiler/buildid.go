package compiler

import "github.com/google/uuid"

// newBuildID returns a fresh diagnostic correlator for one compile
// invocation's Program. It is never parsed or compared for program
// equality; two compiles of identical source produce different BuildIDs.
func newBuildID() string {
	return uuid.NewString()
}
