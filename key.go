package side

// RequestKey issues the next dynamic tracer key: strictly increasing,
// never recycled, always >= 8. Returns NoMem if the counter has
// wrapped around to zero.
func RequestKey() (uint64, Error) {
	defaultCore.init()
	return defaultCore.keys.Request()
}
