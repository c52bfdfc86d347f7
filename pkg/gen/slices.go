package gen

// DeleteFromSliceUnordered removes element i by swapping the last element
// into its place. Order is not preserved.
func DeleteFromSliceUnordered[T any](slice []T, i int) []T {
	var empty T
	n := len(slice)
	slice[i] = slice[n-1]
	slice[n-1] = empty
	return slice[:n-1]
}
