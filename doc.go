// Package deeply provides hierarchical, verifiable task trees. A task is either
// a leaf action or a composite of child tasks. Before any side-effecting work
// runs, a verification pass walks the whole tree, fanning out concurrently to
// the children of every composite while honouring cancellation via
// context.Context. Once verification succeeds, the execute phase runs the same
// tree, sequentially or concurrently per composite.
package deeply
