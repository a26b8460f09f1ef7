// Package layout computes the geometry of a flow's render tree.
//
// # Pipeline
//
// A layout runs in three passes, always from scratch:
//
//  1. [Build] walks the persisted flow and creates a render tree whose nodes
//     carry default card sizes and zeroed geometry.
//  2. [ComputeBoxes] runs bottom-up and fills each node's ConnectionsBox
//     (own connectors plus nested chains) and BoundingBox (everything
//     reachable, continuation included).
//  3. [AssignOffsets] runs top-down and places each continuation below its
//     predecessor, relative to the parent's origin.
//
// [Compute] chains the three and returns a [Tree].
//
// # Node Shapes
//
// The tree is a sum type over four variants:
//
//	*Trigger        root, one continuation
//	*SimpleAction   one continuation
//	*LoopAction     continuation + loop body
//	*BranchAction   continuation + success arm + failure arm
//
// Links point forward only; there are no parent pointers. Context needed
// while walking (such as the enclosing branch) is passed down the recursion.
//
// # Geometry Rules
//
// For every node:
//
//	BoundingBox.Height = ConnectionsBox.Height + (Next ? Spacing + Next.BoundingBox.Height : 0)
//
// A loop adds a fixed frame around its body, or around
// EmptyLoopPlaceholderHeight when the body is empty. A branch adds the same
// frame around the taller of its two arms, never less than
// EmptyBranchPlaceholderHeight; the arms render side by side, so their
// heights are not summed.
//
// # Serialization
//
// [Tree.Export] and [Document.Parse] convert between trees and the JSON
// [Document] used by the cache and the HTTP API.
//
// # Concurrency
//
// Trees are not safe for concurrent mutation. Publish a finished tree and
// treat it as read-only; compute a new one for every edit.
package layout
