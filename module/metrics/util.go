package metrics

const (
	KiB = 1 << (10 * (iota + 1))
	MiB
	GiB
)
