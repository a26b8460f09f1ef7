package layout

// BranchDepth returns the deepest branch nesting reachable from n. Renderers
// use it to reserve horizontal space before placing arms.
func BranchDepth(n Node) int {
	if n == nil {
		return 0
	}
	next := BranchDepth(n.Common().Next)
	branch, ok := n.(*BranchAction)
	if !ok {
		return next
	}
	return max(1+BranchDepth(branch.OnFailureAction), 1+BranchDepth(branch.OnSuccessAction), next)
}
