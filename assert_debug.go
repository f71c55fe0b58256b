//go:build eventloopdebug

package eventloop

import "fmt"

// reportLiveHandlesOnDestroy asserts that Destroy was never called with
// subscribed handles still live. Built only under the eventloopdebug tag;
// see assert_release.go for the default (log-and-leak) behavior.
func reportLiveHandlesOnDestroy(count int) {
	panic(fmt.Sprintf("eventloop: Destroy called with %d live handle(s) still subscribed", count))
}
