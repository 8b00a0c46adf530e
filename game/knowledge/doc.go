// Package knowledge implements the agent's propositional knowledge base.
//
// Facts are typed (cell, predicate, polarity) records. The fact set only
// grows: a stored fact is never retracted or overwritten, and an attempt to
// store its negation is reported as a *ContradictionError.
//
// Integrate runs the forward-chaining protocol once per percept:
//
//  1. the current cell is visited and safe
//  2. no breeze: every in-bounds neighbor is not a pit
//  3. no stench: every in-bounds neighbor is not a hazard
//  4. a cell is safe once it is known to be neither a pit nor a hazard
//
// A breeze or stench never marks a neighbor unsafe on its own. It is kept as
// a clause ("one of these neighbors has a pit") that later negative evidence
// shrinks; a clause left with a single candidate proves that candidate
// dangerous. Rules are reapplied until a pass adds nothing.
//
// Reader is the query surface handed to planners and strategies; only the
// controller's inference step holds the *KnowledgeBase itself.
package knowledge
