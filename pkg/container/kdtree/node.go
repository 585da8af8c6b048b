package kdtree

type node[P Point] struct {
	Key   P
	Left  *node[P]
	Right *node[P]
}
