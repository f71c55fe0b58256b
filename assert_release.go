//go:build !eventloopdebug

package eventloop

// reportLiveHandlesOnDestroy logs a leak warning when Destroy is called
// with subscribed handles still live. This is a programming error; the
// eventloopdebug build tag turns it into a hard panic instead (see
// assert_debug.go).
func reportLiveHandlesOnDestroy(count int) {
	getGlobalLogger().Log(LogEntry{
		Level:    LevelError,
		Category: "lifecycle",
		Message:  "Destroy called with live handles still subscribed; leaking",
	})
	_ = count
}
