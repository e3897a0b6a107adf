package store

// ChunkRange invokes fn over [start, end) windows of at most chunkSize
// until total is covered. Used to keep batch inserts under parameter
// limits.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}
